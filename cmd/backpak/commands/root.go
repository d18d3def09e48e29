// Package commands implements the backpak CLI: repository initialization,
// index rebuilding, and tree diffing. Snapshot creation/restore and the
// ls/print UI are out of scope and are not wired here.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"

	// Global flags.
	repoPath   string
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:           "backpak",
	Short:         "A content-addressed, deduplicating backup engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoPath, "repo", ".", "repository root directory")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "user config path (empty string forces defaults)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(rebuildIndexCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(configShowCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("backpak %s (%s)\n", Version, Commit)
		return nil
	},
}
