package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-intel/internal/store"
	"github.com/sells-group/market-intel/internal/validate"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Drive data points through the validation workflow",
}

// -- review queue --

var reviewQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List points awaiting review",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		w, st, err := reviewWorkflow(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		pending, err := w.PendingItems(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "review queue")
		}
		inReview, err := w.ReviewQueue(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "review queue")
		}

		if len(pending)+len(inReview) == 0 {
			fmt.Fprintln(os.Stderr, "Nothing to review.")
			return nil
		}
		formatDataPoints(os.Stdout, append(inReview, pending...))
		return nil
	},
}

// -- review evaluate --

var reviewEvaluateCmd = &cobra.Command{
	Use:   "evaluate <data-point-id>",
	Short: "Run the quality rules against a point",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		w, st, err := reviewWorkflow(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ev, err := w.Evaluate(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "review evaluate")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ev)
	},
}

// -- review start --

var reviewStartCmd = &cobra.Command{
	Use:   "start <data-point-id>",
	Short: "Move a point into review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		w, st, err := reviewWorkflow(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		actor, _ := cmd.Flags().GetString("actor")
		if err := w.StartReview(ctx, args[0], actor); err != nil {
			return eris.Wrap(err, "review start")
		}
		fmt.Printf("%s is now in review\n", args[0])
		return nil
	},
}

// -- review validate --

var reviewValidateCmd = &cobra.Command{
	Use:   "validate <data-point-id>...",
	Short: "Mark one or more points validated",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		w, st, err := reviewWorkflow(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		actor, _ := cmd.Flags().GetString("actor")
		notes, _ := cmd.Flags().GetString("notes")

		if len(args) == 1 {
			if err := w.ValidateItem(ctx, args[0], actor, notes); err != nil {
				return eris.Wrap(err, "review validate")
			}
			fmt.Printf("%s validated\n", args[0])
			return nil
		}

		result, err := w.BatchValidate(ctx, args, actor, notes)
		if err != nil {
			return eris.Wrap(err, "review validate")
		}
		fmt.Printf("Validated %d of %d point(s)\n", len(result.Validated), len(args))
		for _, s := range result.Skipped {
			fmt.Printf("  skipped %s: %s\n", s.ID, s.Reason)
		}
		return nil
	},
}

// -- review reject --

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <data-point-id>",
	Short: "Reject a point",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		w, st, err := reviewWorkflow(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		actor, _ := cmd.Flags().GetString("actor")
		reason, _ := cmd.Flags().GetString("reason")
		if reason == "" {
			return eris.New("--reason is required")
		}
		if err := w.RejectItem(ctx, args[0], actor, reason); err != nil {
			return eris.Wrap(err, "review reject")
		}
		fmt.Printf("%s rejected\n", args[0])
		return nil
	},
}

// -- review outdate --

var reviewOutdateCmd = &cobra.Command{
	Use:   "outdate <data-point-id>",
	Short: "Retire a validated point superseded by newer data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		w, st, err := reviewWorkflow(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := w.MarkOutdated(ctx, args[0]); err != nil {
			return eris.Wrap(err, "review outdate")
		}
		fmt.Printf("%s marked outdated\n", args[0])
		return nil
	},
}

// -- review auto --

var reviewAutoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Auto-validate pending high-confidence points that pass every rule",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		w, st, err := reviewWorkflow(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		result, err := w.AutoValidateHighConfidence(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "review auto")
		}
		fmt.Printf("Auto-validated %d point(s), %d left for review\n",
			len(result.Validated), len(result.Skipped))
		return nil
	},
}

func reviewWorkflow(ctx context.Context) (*validate.Workflow, store.Store, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	w, err := initWorkflow(st)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, err
	}
	return w, st, nil
}

func init() {
	reviewQueueCmd.Flags().Int("limit", 50, "max number of points to display")
	reviewStartCmd.Flags().String("actor", "", "reviewer name")
	reviewValidateCmd.Flags().String("actor", "", "reviewer name")
	reviewValidateCmd.Flags().String("notes", "", "validation notes")
	reviewRejectCmd.Flags().String("actor", "", "reviewer name")
	reviewRejectCmd.Flags().String("reason", "", "why the point is rejected (required)")
	reviewAutoCmd.Flags().Int("limit", 500, "max pending points to consider")

	reviewCmd.AddCommand(reviewQueueCmd)
	reviewCmd.AddCommand(reviewEvaluateCmd)
	reviewCmd.AddCommand(reviewStartCmd)
	reviewCmd.AddCommand(reviewValidateCmd)
	reviewCmd.AddCommand(reviewRejectCmd)
	reviewCmd.AddCommand(reviewOutdateCmd)
	reviewCmd.AddCommand(reviewAutoCmd)
	rootCmd.AddCommand(reviewCmd)
}
