// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/authchain/authchain/internal/config"
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(
		&configPath,
		"config",
		"c",
		config.DefaultPath,
		"Directory containing main.toml",
	)
}

var rootCmd = &cobra.Command{
	Use:   "authchain",
	Short: "authchain authenticates requests over an ordered chain of adapters",
	Long: `authchain authenticates HTTP requests over an ordered chain of
authentication adapters (OpenID Connect bearer tokens, LDAP directories and
anonymous access) and exposes the resolved identity to the services behind it.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
