package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/enrolytics-cli/internal/config"
	"github.com/KaramelBytes/enrolytics-cli/internal/logger"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	// An existing config may be invalid; init must still be able to replace it.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Initialize(logJSON, verbose)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		// Refuse to overwrite an existing config.
		if _, err := os.Stat(path); err == nil && !initForce {
			return errors.WithHint(errors.Newf("config already exists at %s", path), "pass --force to overwrite it")
		} else if err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "stat config file")
		}
		c := cfgpkg.Default()
		if flagDataDir != "" {
			c.DataDir = flagDataDir
		}
		if err := cfgpkg.Save(c, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Config initialized: %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}
