package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dispatch"
	"github.com/KaramelBytes/enrolytics-cli/internal/techniques"
)

var (
	listCategory string
	listPanels   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List techniques or dashboard panels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if listPanels {
			for _, name := range dispatch.Panels() {
				p, _ := dispatch.LookupPanel(name)
				fmt.Fprintf(out, "- %s: baseline=%s enriched=%s\n", p.Name, p.Baseline, p.Enriched)
			}
			return nil
		}
		if listCategory != "" {
			known := false
			for _, c := range techniques.Categories() {
				known = known || c == listCategory
			}
			if !known {
				return analysis.InvalidParameter("category", listCategory, techniques.Categories())
			}
		}
		current := ""
		for _, t := range techniques.All() {
			if listCategory != "" && t.Category != listCategory {
				continue
			}
			if t.Category != current {
				current = t.Category
				fmt.Fprintf(out, "[%s]\n", strings.ToUpper(current))
			}
			kinds := make([]string, len(t.Datasets))
			for i, k := range t.Datasets {
				kinds[i] = string(k)
			}
			fmt.Fprintf(out, "- %s: %s (%s)\n", t.Name, t.Title, strings.Join(kinds, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listCategory, "category", "", "only list one category")
	listCmd.Flags().BoolVar(&listPanels, "panels", false, "list dashboard panels instead of techniques")
}
