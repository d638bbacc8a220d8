package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "stats")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

		_, _ = fmt.Fprintln(w, "Table counts:")
		for _, table := range sortedKeys(stats.TableCounts) {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", table, stats.TableCounts[table])
		}

		if len(stats.ByStatus) > 0 {
			_, _ = fmt.Fprintln(w, "\nValidation status:")
			for status, n := range stats.ByStatus {
				_, _ = fmt.Fprintf(w, "  %s:\t%d\n", status, n)
			}
		}

		if len(stats.BySector) > 0 {
			_, _ = fmt.Fprintln(w, "\nData points per sector:")
			for _, sector := range sortedKeys(stats.BySector) {
				_, _ = fmt.Fprintf(w, "  %s:\t%d\n", sector, stats.BySector[sector])
			}
		}

		if len(stats.RecentActivity) > 0 {
			_, _ = fmt.Fprintln(w, "\nRecent activity (30 days):")
			for _, day := range sortedKeys(stats.RecentActivity) {
				_, _ = fmt.Fprintf(w, "  %s:\t%d\n", day, stats.RecentActivity[day])
			}
		}

		return w.Flush()
	},
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
