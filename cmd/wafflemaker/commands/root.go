// Package commands is WaffleMaker's cobra CLI surface: a single
// long-running agent command plus version plumbing.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wafflemaker",
	Short: "WaffleMaker - GitOps container deployment agent",
	Long: `WaffleMaker watches a configuration repository for changes,
reconciles the declared set of services against a container runtime,
manages the associated secrets and credentials, and publishes internal
DNS records for inter-service discovery.`,
	RunE: runAgent,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "wafflemaker.toml", "path to the configuration file")
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version string shown by `wafflemaker --version`.
func SetVersionInfo(version, commit string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)
}
