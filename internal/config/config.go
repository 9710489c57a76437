package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "STAKING_LEDGER"

type DatabaseDriver string

const (
	DatabaseDriver_Sqlite   DatabaseDriver = "sqlite"
	DatabaseDriver_Postgres DatabaseDriver = "postgres"
)

func ParseDatabaseDriver(d string) (DatabaseDriver, error) {
	switch strings.ToLower(d) {
	case "", string(DatabaseDriver_Sqlite):
		return DatabaseDriver_Sqlite, nil
	case string(DatabaseDriver_Postgres):
		return DatabaseDriver_Postgres, nil
	}
	return "", fmt.Errorf("invalid database driver '%s'. Must be one of: sqlite, postgres", d)
}

type Config struct {
	Debug            bool
	DatabaseConfig   DatabaseConfig
	LedgerConfig     LedgerConfig
	RpcConfig        RpcConfig
	QueueConfig      QueueConfig
	PrometheusConfig PrometheusConfig
	DataDogConfig    DataDogConfig
	ClientConfig     ClientConfig
	SnapshotConfig   SnapshotConfig
}

type DatabaseConfig struct {
	Driver      string
	SqlitePath  string
	Host        string
	Port        int
	User        string
	Password    string
	DbName      string
	SchemaName  string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

type LedgerConfig struct {
	// AdminPrincipal is the only principal allowed to distribute rewards
	// and mint custody balances.
	AdminPrincipal string
	// CustodyPrincipal is the account that holds staked and reward funds.
	CustodyPrincipal string
}

type RpcConfig struct {
	GrpcPort       int
	HttpPort       int
	AllowedOrigins []string
	// MaxClockSkew bounds how far a signed request's timestamp may drift from the server clock.
	MaxClockSkew time.Duration
}

type QueueConfig struct {
	BufferSize int
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type DataDogConfig struct {
	StatsdConfig StatsdConfig
}

type StatsdConfig struct {
	Enabled    bool
	Url        string
	SampleRate float64
}

type ClientConfig struct {
	LedgerUrl string
	// PrivateKey is the hex secp256k1 key the client signs requests with.
	// Its address is the principal the client acts as.
	PrivateKey string
}

type SnapshotConfig struct {
	OutputFile string
}

// Flag/viper keys
var (
	Debug = "debug"

	DatabaseDriverKey   = "database.driver"
	DatabaseSqlitePath  = "database.sqlite_path"
	DatabaseHost        = "database.host"
	DatabasePort        = "database.port"
	DatabaseUser        = "database.user"
	DatabasePassword    = "database.password"
	DatabaseDbName      = "database.db_name"
	DatabaseSchemaName  = "database.schema_name"
	DatabaseSSLMode     = "database.ssl_mode"
	DatabaseSSLCert     = "database.ssl_cert"
	DatabaseSSLKey      = "database.ssl_key"
	DatabaseSSLRootCert = "database.ssl_root_cert"

	LedgerAdminPrincipal   = "ledger.admin_principal"
	LedgerCustodyPrincipal = "ledger.custody_principal"

	RpcGrpcPort       = "rpc.grpc_port"
	RpcHttpPort       = "rpc.http_port"
	RpcAllowedOrigins = "rpc.allowed_origins"
	RpcMaxClockSkew   = "rpc.max_clock_skew"

	QueueBufferSize = "queue.buffer_size"

	PrometheusEnabled = "prometheus.enabled"
	PrometheusPort    = "prometheus.port"

	DataDogStatsdEnabled    = "datadog.statsd.enabled"
	DataDogStatsdUrl        = "datadog.statsd.url"
	DataDogStatsdSampleRate = "datadog.statsd.sample_rate"

	ClientLedgerUrl  = "client.ledger_url"
	ClientPrivateKey = "client.private_key"

	SnapshotOutputFile = "snapshot.output_file"
)

func NewConfig() *Config {
	return &Config{
		Debug: viper.GetBool(normalizeFlagName(Debug)),

		DatabaseConfig: DatabaseConfig{
			Driver:      viper.GetString(normalizeFlagName(DatabaseDriverKey)),
			SqlitePath:  viper.GetString(normalizeFlagName(DatabaseSqlitePath)),
			Host:        viper.GetString(normalizeFlagName(DatabaseHost)),
			Port:        viper.GetInt(normalizeFlagName(DatabasePort)),
			User:        viper.GetString(normalizeFlagName(DatabaseUser)),
			Password:    viper.GetString(normalizeFlagName(DatabasePassword)),
			DbName:      viper.GetString(normalizeFlagName(DatabaseDbName)),
			SchemaName:  viper.GetString(normalizeFlagName(DatabaseSchemaName)),
			SSLMode:     viper.GetString(normalizeFlagName(DatabaseSSLMode)),
			SSLCert:     viper.GetString(normalizeFlagName(DatabaseSSLCert)),
			SSLKey:      viper.GetString(normalizeFlagName(DatabaseSSLKey)),
			SSLRootCert: viper.GetString(normalizeFlagName(DatabaseSSLRootCert)),
		},

		LedgerConfig: LedgerConfig{
			AdminPrincipal:   strings.ToLower(viper.GetString(normalizeFlagName(LedgerAdminPrincipal))),
			CustodyPrincipal: strings.ToLower(viper.GetString(normalizeFlagName(LedgerCustodyPrincipal))),
		},

		RpcConfig: RpcConfig{
			GrpcPort:       viper.GetInt(normalizeFlagName(RpcGrpcPort)),
			HttpPort:       viper.GetInt(normalizeFlagName(RpcHttpPort)),
			AllowedOrigins: parseListString(viper.GetString(normalizeFlagName(RpcAllowedOrigins))),
			MaxClockSkew:   viper.GetDuration(normalizeFlagName(RpcMaxClockSkew)),
		},

		QueueConfig: QueueConfig{
			BufferSize: viper.GetInt(normalizeFlagName(QueueBufferSize)),
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(normalizeFlagName(PrometheusEnabled)),
			Port:    viper.GetInt(normalizeFlagName(PrometheusPort)),
		},

		DataDogConfig: DataDogConfig{
			StatsdConfig: StatsdConfig{
				Enabled:    viper.GetBool(normalizeFlagName(DataDogStatsdEnabled)),
				Url:        viper.GetString(normalizeFlagName(DataDogStatsdUrl)),
				SampleRate: viper.GetFloat64(normalizeFlagName(DataDogStatsdSampleRate)),
			},
		},

		ClientConfig: ClientConfig{
			LedgerUrl:  viper.GetString(normalizeFlagName(ClientLedgerUrl)),
			PrivateKey: viper.GetString(normalizeFlagName(ClientPrivateKey)),
		},

		SnapshotConfig: SnapshotConfig{
			OutputFile: viper.GetString(normalizeFlagName(SnapshotOutputFile)),
		},
	}
}

func (c *Config) GetDatabaseDriver() (DatabaseDriver, error) {
	return ParseDatabaseDriver(c.DatabaseConfig.Driver)
}

// Validate checks the settings required to run the ledger service.
func (c *Config) Validate() error {
	if _, err := c.GetDatabaseDriver(); err != nil {
		return err
	}
	if c.LedgerConfig.AdminPrincipal == "" {
		return fmt.Errorf("%s is required", LedgerAdminPrincipal)
	}
	if c.LedgerConfig.CustodyPrincipal == "" {
		return fmt.Errorf("%s is required", LedgerCustodyPrincipal)
	}
	if c.LedgerConfig.AdminPrincipal == c.LedgerConfig.CustodyPrincipal {
		return fmt.Errorf("%s and %s must differ", LedgerAdminPrincipal, LedgerCustodyPrincipal)
	}
	return nil
}

func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

func normalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}

func parseListString(s string) []string {
	if s == "" {
		return []string{}
	}
	l := make([]string, 0)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			l = append(l, item)
		}
	}
	return l
}
