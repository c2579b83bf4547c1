package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/enrolytics-cli/internal/summary"
)

var (
	sumFormat     string
	sumOutputPath string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Compute the executive summary (fraud, operations and forecast KPIs)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveFormat(sumFormat)
		if err != nil {
			return err
		}
		env, _, err := newEnv()
		if err != nil {
			return err
		}
		sum, err := summary.New(env).Summarize(cmd.Context())
		if err != nil {
			return err
		}
		b, err := encode(sum, func() string { return summaryMarkdown(sum) }, format)
		if err != nil {
			return err
		}
		return emit(cmd, b, sumOutputPath)
	},
}

func summaryMarkdown(s *summary.ExecutiveSummary) string {
	var b strings.Builder
	b.WriteString("[KPIS]\n")
	for _, k := range s.KPIs {
		v := k.Text
		if v == "" {
			v = fmt.Sprintf("%.2f%s", k.Value, k.Unit)
		}
		fmt.Fprintf(&b, "- %s: %s (%s)\n", k.Label, v, k.Status)
	}
	b.WriteString("\n[COMPONENTS]\n")
	names := make([]string, 0, len(s.Components))
	for n := range s.Components {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c := s.Components[n]
		fmt.Fprintf(&b, "- %s: %s", n, c.Status)
		if c.Risk != "" {
			fmt.Fprintf(&b, ", risk %s", c.Risk)
		}
		if c.Error != "" {
			fmt.Fprintf(&b, " (%s)", c.Error)
		}
		fmt.Fprintf(&b, ", %d ms\n", c.DurationMS)
	}
	b.WriteString("\n")
	b.WriteString(s.Result.Markdown())
	return b.String()
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVarP(&sumFormat, "format", "f", "", "output format: markdown|json|yaml (default from config)")
	summaryCmd.Flags().StringVarP(&sumOutputPath, "output", "o", "", "optional path to write the summary")
}
