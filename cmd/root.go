package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/enrolytics-cli/internal/config"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
	"github.com/KaramelBytes/enrolytics-cli/internal/logger"
	"github.com/KaramelBytes/enrolytics-cli/internal/techniques"
)

var (
	// Global flags
	cfgFile     string
	flagDataDir string
	verbose     bool
	logJSON     bool

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "enrolytics",
	Short: "Enrolytics: explainable statistics over identity-enrolment data",
	Long: `Enrolytics loads the enrolment, demographic-update and biometric-update tables and runs
explainable statistical techniques over them. Every result carries its formula, the numbered
calculation steps, intermediate values, a risk level and a decision.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		return logger.Initialize(logJSON || cfg.LogJSON, verbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, "✗ Error:", err)
	if hint := errors.FlattenHints(err); hint != "" {
		fmt.Fprintln(os.Stderr, "  hint:", hint)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.enrolytics/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory holding the three table folders (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON on stderr")
}

func loadConfig() error {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return errors.WithHint(err, "fix the file or run 'enrolytics config path' to locate it")
	}
	if flagDataDir != "" {
		c.DataDir = flagDataDir
	}
	cfg = c
	return nil
}

// newEnv builds a repository and a technique environment from the loaded
// configuration. Tables load lazily on first use.
func newEnv() (techniques.Env, *dataset.Repository, error) {
	opts, err := cfg.RepositoryOptions()
	if err != nil {
		return techniques.Env{}, nil, err
	}
	cal, err := cfg.Calibration()
	if err != nil {
		return techniques.Env{}, nil, err
	}
	repo := dataset.New(opts)
	return techniques.Env{Data: repo, Cal: cal}, repo, nil
}
