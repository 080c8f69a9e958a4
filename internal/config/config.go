// Package config loads treekv's server configuration from command-line
// flags, TREEKV_*-prefixed environment variables, and .env/.env.local
// files (viper binding flags, godotenv populating the environment before
// viper reads it).
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ServerConfig holds everything the serve command needs to start treekv.
type ServerConfig struct {
	// Port is the TCP port the client listener binds.
	Port int

	// LogLevel selects the minimum internal/logging severity (debug, info,
	// warn, error).
	LogLevel string

	// MetricsAddr is the optional host:port internal/metrics serves
	// Prometheus text on. Empty disables the metrics endpoint entirely.
	MetricsAddr string
}

// BindFlags registers the serve command's flags on cmd.Flags(), the flag
// set Load binds to viper.
func BindFlags(cmd *cobra.Command) {
	cmd.Flags().Int("port", 8080, "TCP port the key/value server listens on")
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().String("metrics-addr", "", "Address to serve Prometheus metrics on (empty disables metrics)")
}

// Load binds cmd's flags to viper and builds a ServerConfig from the
// merged flag/env/file configuration. It is the direct analogue of
// cmd/serve/root.go's processConfig.
func Load(cmd *cobra.Command) (*ServerConfig, error) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	cfg := &ServerConfig{
		Port:        viper.GetInt("port"),
		LogLevel:    viper.GetString("log-level"),
		MetricsAddr: viper.GetString("metrics-addr"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 1 and 65535", cfg.Port)
	}

	return cfg, nil
}

// InitViper loads .env/.env.local and configures viper's environment
// binding. Intended for cobra.OnInitialize, matching cmd/serve/root.go's
// initConfig.
func InitViper() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("treekv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
