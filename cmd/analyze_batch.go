package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/export"
	"github.com/KaramelBytes/enrolytics-cli/internal/logger"
	"github.com/KaramelBytes/enrolytics-cli/internal/techniques"
	"github.com/KaramelBytes/enrolytics-cli/internal/utils"
)

var (
	abAll       bool
	abCategory  string
	abOutputDir string
	abXLSX      string
	abFormat    string
	abParallel  int
	abQuiet     bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch [techniques...]",
	Short: "Run many techniques, writing one file each and/or a workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := batchNames(args)
		if err != nil {
			return err
		}
		if abOutputDir == "" && abXLSX == "" {
			return errors.WithHint(errors.New("nowhere to write results"), "pass --output-dir and/or --xlsx")
		}
		format, err := resolveFormat(abFormat)
		if err != nil {
			return err
		}
		env, _, err := newEnv()
		if err != nil {
			return err
		}

		runID := uuid.NewString()
		log := logger.Named("batch").With(logger.FieldRunID, runID)
		out := cmd.OutOrStdout()
		total := len(names)

		var (
			mu      sync.Mutex
			done    int
			results = make([]*analysis.Result, total)
			failed  = map[string]error{}
		)
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(max(abParallel, 1))
		for i, name := range names {
			i, name := i, name
			g.Go(func() error {
				res, err := techniques.Run(ctx, env, name)
				if err == nil && abOutputDir != "" {
					err = writeBatchResult(res, name, format)
				}
				mu.Lock()
				defer mu.Unlock()
				done++
				if err != nil {
					failed[name] = err
					log.Warnw("technique failed", logger.FieldTechnique, name, logger.FieldError, err)
					if !abQuiet {
						fmt.Fprintf(out, "[%d/%d] ✗ %s: %v\n", done, total, name, err)
					}
					return nil
				}
				results[i] = res
				if !abQuiet {
					fmt.Fprintf(out, "[%d/%d] ✓ %s (%s)\n", done, total, name, res.Risk)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if err := cmd.Context().Err(); err != nil {
			return errors.Wrap(err, "batch interrupted")
		}

		if abXLSX != "" {
			var entries []export.Entry
			for i, name := range names {
				if results[i] != nil {
					entries = append(entries, export.Entry{Name: name, Result: results[i]})
				}
			}
			if err := export.Save(abXLSX, entries); err != nil {
				return err
			}
			if !abQuiet {
				fmt.Fprintf(out, "✓ Wrote workbook %s (%d sheets)\n", abXLSX, len(entries)+1)
			}
		}
		log.Infow("batch complete", logger.FieldCount, total-len(failed), "failed", len(failed))

		if len(failed) > 0 {
			keys := make([]string, 0, len(failed))
			for k := range failed {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return errors.WithHintf(errors.Newf("%d of %d techniques failed", len(failed), total),
				"failed: %v (first error: %v)", keys, failed[keys[0]])
		}
		return nil
	},
}

// batchNames resolves positional names, --category and --all into a sorted,
// de-duplicated list of registered techniques.
func batchNames(args []string) ([]string, error) {
	seen := map[string]struct{}{}
	var names []string
	add := func(n string) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	for _, a := range args {
		if _, err := techniques.Lookup(a); err != nil {
			return nil, err
		}
		add(a)
	}
	if abCategory != "" {
		found := false
		for _, t := range techniques.All() {
			if t.Category == abCategory {
				add(t.Name)
				found = true
			}
		}
		if !found {
			return nil, analysis.InvalidParameter("category", abCategory, techniques.Categories())
		}
	}
	if abAll {
		for _, n := range techniques.Names() {
			add(n)
		}
	}
	if len(names) == 0 {
		return nil, errors.WithHint(errors.New("no techniques selected"), "name techniques, or pass --category or --all")
	}
	sort.Strings(names)
	return names, nil
}

func writeBatchResult(res *analysis.Result, name, format string) error {
	b, err := encode(res, res.Markdown, format)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(abOutputDir, name+extension(format)), b)
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().BoolVar(&abAll, "all", false, "run every registered technique")
	analyzeBatchCmd.Flags().StringVar(&abCategory, "category", "", "run every technique in a category")
	analyzeBatchCmd.Flags().StringVar(&abOutputDir, "output-dir", "", "directory to write one file per technique")
	analyzeBatchCmd.Flags().StringVar(&abXLSX, "xlsx", "", "write all results to this Excel workbook")
	analyzeBatchCmd.Flags().StringVarP(&abFormat, "format", "f", "", "per-file format: markdown|json|yaml (default from config)")
	analyzeBatchCmd.Flags().IntVar(&abParallel, "parallel", 4, "techniques to run concurrently")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
