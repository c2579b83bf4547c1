package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
	"github.com/KaramelBytes/enrolytics-cli/internal/techniques"
)

var profileDetail bool

var profileCmd = &cobra.Command{
	Use:   "profile [dataset...]",
	Short: "Load the tables and report rows, coverage and data-quality counts",
	Long: `Load each table (all three by default) and print what was read: files, rows kept and dropped,
defaulted cells and the date and geographic coverage. --detail also runs the profile technique.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := dataset.Kinds()
		if len(args) > 0 {
			kinds = kinds[:0:0]
			for _, a := range args {
				k, err := dataset.ParseKind(a)
				if err != nil {
					return err
				}
				kinds = append(kinds, k)
			}
		}
		env, repo, err := newEnv()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, k := range kinds {
			t, err := repo.Load(cmd.Context(), k)
			if err != nil {
				fmt.Fprintf(out, "[%s] unavailable: %v\n\n", k, err)
				continue
			}
			st := t.Stats()
			fmt.Fprintf(out, "[%s]\n", k)
			fmt.Fprintf(out, "files:           %d\n", len(st.Files))
			fmt.Fprintf(out, "rows:            %s\n", humanize.Comma(int64(st.Rows)))
			fmt.Fprintf(out, "dropped rows:    %s\n", humanize.Comma(int64(st.DroppedRows)))
			fmt.Fprintf(out, "defaulted cells: %s of %s\n", humanize.Comma(int64(st.DefaultedCells)), humanize.Comma(int64(st.Cells)))
			if st.Rows > 0 {
				fmt.Fprintf(out, "dates:           %s .. %s\n", st.First.Format("2006-01-02"), st.Last.Format("2006-01-02"))
			}
			fmt.Fprintf(out, "states:          %d\n", st.States)
			fmt.Fprintf(out, "districts:       %d\n", st.Districts)
			fmt.Fprintf(out, "total:           %s\n\n", humanize.Commaf(t.GrandTotal()))
		}
		if profileDetail {
			res, err := techniques.Run(cmd.Context(), env, "profile")
			if err != nil {
				return err
			}
			fmt.Fprint(out, res.Markdown())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().BoolVar(&profileDetail, "detail", false, "also print the profile technique's full result")
}
