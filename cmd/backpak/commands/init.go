package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a repository configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(repoPath, "config.toml")
		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := os.MkdirAll(repoPath, 0o755); err != nil {
			return err
		}
		return os.WriteFile(path, []byte(defaultConfigTOML), 0o644)
	},
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing config file")
}

const defaultConfigTOML = `pack_size = "16Mi"

[backend]
type = "Filesystem"
force_cache = false
`
