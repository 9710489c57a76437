package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Layr-Labs/staking-ledger/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "staking-ledger",
	Short: "A single-asset staking ledger that distributes rewards pro rata to stake and time staked",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool("debug", false, `"true" or "false"`)

	rootCmd.PersistentFlags().String("database.driver", string(config.DatabaseDriver_Sqlite), `The database driver to use (sqlite, postgres)`)
	rootCmd.PersistentFlags().String("database.sqlite-path", "./staking-ledger.db", `Path to the sqlite database file`)
	rootCmd.PersistentFlags().String(config.DatabaseHost, "localhost", `PostgreSQL host`)
	rootCmd.PersistentFlags().Int(config.DatabasePort, 5432, `PostgreSQL port`)
	rootCmd.PersistentFlags().String(config.DatabaseUser, "staking_ledger", `PostgreSQL username`)
	rootCmd.PersistentFlags().String(config.DatabasePassword, "", `PostgreSQL password`)
	rootCmd.PersistentFlags().String("database.db-name", "staking_ledger", `PostgreSQL database name`)
	rootCmd.PersistentFlags().String("database.schema-name", "", `PostgreSQL schema name (default "public")`)
	rootCmd.PersistentFlags().String("database.ssl-mode", "disable", `PostgreSQL ssl mode (disable, require, verify-ca, verify-full)`)
	rootCmd.PersistentFlags().String("database.ssl-cert", "", `Path to the client certificate`)
	rootCmd.PersistentFlags().String("database.ssl-key", "", `Path to the client key`)
	rootCmd.PersistentFlags().String("database.ssl-root-cert", "", `Path to the root certificate`)

	rootCmd.PersistentFlags().String("ledger.admin-principal", "", `Address allowed to distribute rewards and mint balances`)
	rootCmd.PersistentFlags().String("ledger.custody-principal", "", `Address of the account holding staked and reward funds`)

	rootCmd.PersistentFlags().Int("rpc.grpc-port", 7100, `gRPC port`)
	rootCmd.PersistentFlags().Int("rpc.http-port", 7101, `http rpc port`)
	rootCmd.PersistentFlags().String("rpc.allowed-origins", "", `Comma separated CORS origins (all when empty)`)
	rootCmd.PersistentFlags().Duration("rpc.max-clock-skew", 5*time.Minute, `Maximum age or future drift of a signed request timestamp`)

	rootCmd.PersistentFlags().Int("queue.buffer-size", 100, `Number of ledger operations that can wait in the queue`)

	rootCmd.PersistentFlags().Bool("datadog.statsd.enabled", false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String("datadog.statsd.url", "", `e.g. "localhost:8125"`)
	rootCmd.PersistentFlags().Float64("datadog.statsd.sample-rate", 1.0, `The sample rate to use for statsd metrics`)

	rootCmd.PersistentFlags().Bool("prometheus.enabled", false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().Int("prometheus.port", 2112, `The port to run the prometheus server on`)

	rootCmd.PersistentFlags().String("client.ledger-url", "http://localhost:7101", `Base url of a running ledger service`)
	rootCmd.PersistentFlags().String("client.private-key", "", `Hex private key the client signs requests with`)

	// setup sub commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runVersionCmd)
	rootCmd.AddCommand(runDatabaseCmd)
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(distributeCmd)
	rootCmd.AddCommand(withdrawCmd)
	rootCmd.AddCommand(amountToWithdrawCmd)
	rootCmd.AddCommand(poolCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(mintCmd)
	rootCmd.AddCommand(exportDepositorsCmd)

	// bind any subcommand flags
	exportDepositorsCmd.PersistentFlags().String("snapshot.output-file", "", "Path to write the csv to (stdout when empty)")

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}

// bindCommandFlags binds a sub command's own flags the same way the root flags are bound.
func bindCommandFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		if err := viper.BindPFlag(key, f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(key); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}
