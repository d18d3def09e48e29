package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/backpak/pkg/repoconfig"
	"github.com/marmos91/backpak/pkg/userconfig"
)

var configShowCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective repository and user configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		repoCfg, err := repoconfig.Load(filepath.Join(repoPath, "config.toml"))
		if err != nil {
			return err
		}

		var userPath *string
		if configFlag != "" || cmd.Flags().Changed("config") {
			userPath = &configFlag
		}
		userCfg, err := userconfig.Load(userPath)
		if err != nil {
			return err
		}

		cmd.Printf("pack_size: %s\n", repoCfg.PackSize)
		cmd.Printf("backend.type: %s\n", repoCfg.Backend.Type)
		cmd.Printf("direct_fs: %v\n", repoCfg.DirectFS())
		cmd.Printf("filter: %q\n", repoCfg.Filter)
		cmd.Printf("cache_size: %s\n", userCfg.CacheSize)
		cmd.Printf("skips: %v\n", userCfg.Skips)
		return nil
	},
}
