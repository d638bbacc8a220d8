package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/store"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Inspect the append-only audit log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		table, _ := cmd.Flags().GetString("table")
		since, _ := cmd.Flags().GetDuration("since")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.ChangeFilter{Table: table, Limit: limit}
		if since > 0 {
			cutoff := time.Now().Add(-since)
			filter.Since = &cutoff
		}

		entries, err := st.GetChanges(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "changes")
		}

		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No audit entries found.")
			return nil
		}

		formatChanges(os.Stdout, entries)
		return nil
	},
}

func formatChanges(out io.Writer, entries []model.ChangeLogEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "WHEN\tTABLE\tRECORD\tTYPE\tBY\tREASON")
	_, _ = fmt.Fprintln(w, "----\t-----\t------\t----\t--\t------")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.TableName,
			truncateID(e.RecordID),
			e.ChangeType,
			e.ChangedBy,
			e.ChangeReason,
		)
	}
	_ = w.Flush()
}

func init() {
	changesCmd.Flags().String("table", "", "filter by table name (e.g. data_points)")
	changesCmd.Flags().Duration("since", 0, "time window (e.g. 24h, 168h)")
	changesCmd.Flags().Int("limit", 50, "max entries to display")
	rootCmd.AddCommand(changesCmd)
}
