package main

import "github.com/Layr-Labs/staking-ledger/cmd"

func main() {
	cmd.Execute()
}
