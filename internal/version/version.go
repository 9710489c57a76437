package version

// Set at build time with:
//
//	-ldflags "-X github.com/Layr-Labs/staking-ledger/internal/version.Version=v1.0.0 -X github.com/Layr-Labs/staking-ledger/internal/version.Commit=abc123"
var (
	Version = "unset"
	Commit  = "unset"
)

func GetVersion() string {
	return Version
}

func GetCommit() string {
	return Commit
}
