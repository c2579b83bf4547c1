package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/enrolytics-cli/internal/logger"
	"github.com/KaramelBytes/enrolytics-cli/internal/techniques"
)

var (
	anaFormat     string
	anaOutputPath string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <technique>",
	Short: "Run one technique and print its explainable result",
	Long: `Run one registered technique. See 'enrolytics list' for the names.

Output is Markdown by default; --format json|yaml emits the full result record.`,
	Args: cobra.ExactArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return techniques.Names(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveFormat(anaFormat)
		if err != nil {
			return err
		}
		if _, err := techniques.Lookup(args[0]); err != nil {
			return err
		}
		env, _, err := newEnv()
		if err != nil {
			return err
		}
		res, err := techniques.Run(cmd.Context(), env, args[0])
		if err != nil {
			return err
		}
		logger.Named("cli").Debugw("technique complete",
			logger.FieldTechnique, args[0], logger.FieldRisk, res.Risk)
		b, err := encode(res, res.Markdown, format)
		if err != nil {
			return err
		}
		return emit(cmd, b, anaOutputPath)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaFormat, "format", "f", "", "output format: markdown|json|yaml (default from config)")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the result")
}
