package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dispatch"
	"github.com/KaramelBytes/enrolytics-cli/internal/render"
)

var (
	chartMode   string
	chartFormat string
	chartPNG    string
	chartOutput string
)

var chartCmd = &cobra.Command{
	Use:   "chart <panel>",
	Short: "Build a dashboard chart payload for a panel",
	Long: `Build the chart payload for a dashboard panel in baseline or enriched mode.
See 'enrolytics list --panels'. --png additionally renders the chart to an image.`,
	Args: cobra.ExactArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return dispatch.Panels(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := dispatch.ParseMode(chartMode)
		if err != nil {
			return err
		}
		format := chartFormat
		if format == "" {
			format = "json"
		}
		if format != "json" && format != "yaml" {
			return analysis.InvalidParameter("chart format", format, []string{"json", "yaml"})
		}
		env, _, err := newEnv()
		if err != nil {
			return err
		}
		chart, err := dispatch.New(env, nil).Dispatch(cmd.Context(), args[0], mode)
		if err != nil {
			return err
		}
		b, err := encode(chart, nil, format)
		if err != nil {
			return err
		}
		if err := emit(cmd, b, chartOutput); err != nil {
			return err
		}
		if chartPNG != "" {
			if err := render.Save(chartPNG, chart); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Rendered %s\n", chartPNG)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringVarP(&chartMode, "mode", "m", string(dispatch.Baseline), "baseline|enriched")
	chartCmd.Flags().StringVarP(&chartFormat, "format", "f", "json", "payload format: json|yaml")
	chartCmd.Flags().StringVar(&chartPNG, "png", "", "also render the chart to this image file")
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "", "optional path to write the payload")
}
