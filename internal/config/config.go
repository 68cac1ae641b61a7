// Package config binds cmd/server's flags and UIFLOW_SERVER_* environment
// variables to a typed Config, following the teacher's
// bindFlagToViper/configureEnvironment pattern in cmd/server/main.go.
package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "UIFLOW_SERVER"

	FlagHost               = "host"
	FlagPort               = "port"
	FlagCatalogDSN         = "catalog-dsn"
	FlagResultsDSN         = "results-dsn"
	FlagCatalogBaseURL     = "catalog-base-url"
	FlagDevelopmentLogging = "dev-logging"
	FlagEnableTracing      = "enable-tracing"

	DefaultHost       = "127.0.0.1"
	DefaultPort       = 3000
	DefaultCatalogDSN = "file:uiflow-catalog.db?mode=memory&cache=shared"
	DefaultResultsDSN = "file:uiflow-results.db?mode=memory&cache=shared"
)

// Config is the resolved set of flags/environment variables cmd/server
// needs to construct its collaborators.
type Config struct {
	Host               string
	Port               int
	CatalogDSN         string
	CatalogBaseURL     string
	ResultsDSN         string
	DevelopmentLogging bool
	EnableTracing      bool
}

// BindFlags registers the command's flags and binds each to Viper,
// mirroring bindFlagToViper in the teacher's cmd/server/main.go.
func BindFlags(command *cobra.Command) {
	command.Flags().String(FlagHost, DefaultHost, "Host interface for the HTTP server")
	command.Flags().Int(FlagPort, DefaultPort, "Port for the HTTP server")
	command.Flags().String(FlagCatalogDSN, DefaultCatalogDSN, "SQLite DSN for the reference test-case catalog")
	command.Flags().String(FlagCatalogBaseURL, "", "Base URL of an external catalog service; when set, the HTTP catalog client is used instead of SQLite")
	command.Flags().String(FlagResultsDSN, DefaultResultsDSN, "SQLite DSN for the reference result store")
	command.Flags().Bool(FlagDevelopmentLogging, false, "Use human-readable development logging instead of JSON")
	command.Flags().Bool(FlagEnableTracing, false, "Export spans to stdout via OpenTelemetry")

	for _, flagName := range []string{FlagHost, FlagPort, FlagCatalogDSN, FlagCatalogBaseURL, FlagResultsDSN, FlagDevelopmentLogging, FlagEnableTracing} {
		cobra.CheckErr(viper.BindPFlag(flagName, command.Flags().Lookup(flagName)))
	}
}

// ConfigureEnvironment wires Viper's automatic environment lookup,
// mirroring configureEnvironment in the teacher's cmd/server/main.go.
func ConfigureEnvironment() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Load reads the bound flags/environment into a Config.
func Load() Config {
	return Config{
		Host:               viper.GetString(FlagHost),
		Port:               viper.GetInt(FlagPort),
		CatalogDSN:         viper.GetString(FlagCatalogDSN),
		CatalogBaseURL:     viper.GetString(FlagCatalogBaseURL),
		ResultsDSN:         viper.GetString(FlagResultsDSN),
		DevelopmentLogging: viper.GetBool(FlagDevelopmentLogging),
		EnableTracing:      viper.GetBool(FlagEnableTracing),
	}
}
