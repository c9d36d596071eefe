package main

import (
	"github.com/spf13/cobra"
)

// version is overridden at build time with
// -ldflags "-X main.version=1.2.3".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "records-api",
	Short: "Concurrent HTTP API for records",
	Long: `records-api stores records (age, gender, nationality) and serves
create, read, update, delete and list operations over HTTP/JSON.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.SetVersionTemplate("records-api version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the configuration YAML file (default: $CONFIG_PATH)")
}
