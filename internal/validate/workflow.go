package validate

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/store"
)

// Policy controls how much the engine can veto a human reviewer.
// Permissive lets reviewers validate anything; strict refuses to
// validate a point the engine would reject.
type Policy string

const (
	PolicyPermissive Policy = "permissive"
	PolicyStrict     Policy = "strict"
)

func (p Policy) Valid() bool {
	return p == PolicyPermissive || p == PolicyStrict
}

// WorkflowStore is the slice of the store the workflow needs.
type WorkflowStore interface {
	GetDataPoint(ctx context.Context, id string) (*model.DataPoint, error)
	GetDataPoints(ctx context.Context, filter store.DataPointFilter) ([]model.DataPoint, error)
	UpdateValidation(ctx context.Context, in store.UpdateValidationInput) (bool, error)
}

// transitions is the allowed status graph. Anything absent is illegal.
// Every state but outdated can be retired to outdated; rejected points
// can be reopened for another review round.
var transitions = map[model.ValidationStatus][]model.ValidationStatus{
	model.StatusPending:   {model.StatusInReview, model.StatusValidated, model.StatusRejected, model.StatusOutdated},
	model.StatusInReview:  {model.StatusValidated, model.StatusRejected, model.StatusOutdated},
	model.StatusValidated: {model.StatusOutdated},
	model.StatusRejected:  {model.StatusInReview, model.StatusOutdated},
	model.StatusOutdated:  {},
}

func canTransition(from, to model.ValidationStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Workflow drives data points through the validation lifecycle.
type Workflow struct {
	store  WorkflowStore
	engine *Engine
	policy Policy
	log    *zap.Logger
}

func NewWorkflow(st WorkflowStore, engine *Engine, policy Policy) (*Workflow, error) {
	if policy == "" {
		policy = PolicyPermissive
	}
	if !policy.Valid() {
		return nil, eris.Errorf("workflow: unknown policy %q", policy)
	}
	return &Workflow{
		store:  st,
		engine: engine,
		policy: policy,
		log:    zap.L().Named("workflow"),
	}, nil
}

// Evaluate runs the rule engine against a stored data point.
func (w *Workflow) Evaluate(ctx context.Context, id string) (*Evaluation, error) {
	dp, err := w.store.GetDataPoint(ctx, id)
	if err != nil {
		return nil, err
	}
	if dp == nil {
		return nil, eris.Errorf("workflow: data point %s not found", id)
	}
	ev := w.engine.Evaluate(*dp)
	return &ev, nil
}

// StartReview moves a pending point into review.
func (w *Workflow) StartReview(ctx context.Context, id, actor string) error {
	return w.transition(ctx, store.UpdateValidationInput{
		ID:          id,
		Status:      model.StatusInReview,
		ValidatedBy: actor,
		Reason:      "review started",
	})
}

// ValidateItem marks a point validated. The engine runs first: under
// the strict policy a reject recommendation vetoes the transition;
// under the permissive policy it proceeds with a warning note.
func (w *Workflow) ValidateItem(ctx context.Context, id, actor, notes string) error {
	ev, err := w.Evaluate(ctx, id)
	if err != nil {
		return err
	}
	if ev.Recommendation == RecommendReject {
		if w.policy == PolicyStrict {
			return eris.Errorf("workflow: %s fails auto-reject rules, cannot validate under strict policy", id)
		}
		w.log.Warn("validating against reject recommendation",
			zap.String("id", id),
			zap.String("actor", actor),
		)
		if notes != "" {
			notes += "; "
		}
		notes += "validated despite reject recommendation"
	}
	return w.transition(ctx, store.UpdateValidationInput{
		ID:          id,
		Status:      model.StatusValidated,
		ValidatedBy: actor,
		Notes:       notes,
		Reason:      "validated",
	})
}

// RejectItem marks a point rejected, recording why.
func (w *Workflow) RejectItem(ctx context.Context, id, actor, reason string) error {
	return w.transition(ctx, store.UpdateValidationInput{
		ID:          id,
		Status:      model.StatusRejected,
		ValidatedBy: actor,
		Notes:       "Rejected: " + reason,
		Reason:      reason,
	})
}

// MarkOutdated retires a validated point that newer data supersedes.
func (w *Workflow) MarkOutdated(ctx context.Context, id string) error {
	return w.transition(ctx, store.UpdateValidationInput{
		ID:          id,
		Status:      model.StatusOutdated,
		ValidatedBy: "system",
		Reason:      "superseded by newer data",
	})
}

func (w *Workflow) transition(ctx context.Context, in store.UpdateValidationInput) error {
	dp, err := w.store.GetDataPoint(ctx, in.ID)
	if err != nil {
		return err
	}
	if dp == nil {
		return eris.Errorf("workflow: data point %s not found", in.ID)
	}
	if !canTransition(dp.Status, in.Status) {
		return eris.Errorf("workflow: illegal transition %s -> %s for %s", dp.Status, in.Status, in.ID)
	}

	ok, err := w.store.UpdateValidation(ctx, in)
	if err != nil {
		return err
	}
	if !ok {
		return eris.Errorf("workflow: data point %s disappeared mid-transition", in.ID)
	}
	w.log.Info("status transition",
		zap.String("id", in.ID),
		zap.String("from", string(dp.Status)),
		zap.String("to", string(in.Status)),
		zap.String("actor", in.ValidatedBy),
	)
	return nil
}

// SkippedItem records one id a batch operation did not validate.
type SkippedItem struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult reports what a batch operation did with every requested
// id. Validated and Skipped together always cover the full input.
type BatchResult struct {
	Validated []string      `json:"validated"`
	Skipped   []SkippedItem `json:"skipped,omitempty"`
}

func (r *BatchResult) skip(id, reason string) {
	r.Skipped = append(r.Skipped, SkippedItem{ID: id, Reason: reason})
}

// BatchValidate validates many points at once. The engine runs first
// for each id; a reject recommendation skips the point, as do missing
// points and illegal transitions, rather than aborting the batch.
func (w *Workflow) BatchValidate(ctx context.Context, ids []string, actor, notes string) (*BatchResult, error) {
	result := &BatchResult{}
	for _, id := range ids {
		ev, err := w.Evaluate(ctx, id)
		if err != nil {
			result.skip(id, eris.Cause(err).Error())
			continue
		}
		if ev.Recommendation == RecommendReject {
			result.skip(id, "engine recommends reject")
			continue
		}
		if err := w.ValidateItem(ctx, id, actor, notes); err != nil {
			result.skip(id, eris.Cause(err).Error())
			continue
		}
		result.Validated = append(result.Validated, id)
	}
	w.log.Info("batch validation complete",
		zap.Int("requested", len(ids)),
		zap.Int("validated", len(result.Validated)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// AutoValidateHighConfidence validates every pending high-confidence
// point with no error-severity rule failures; warnings alone do not
// block auto-validation. Everything else pending is routed into review
// for a human; lower confidence is never auto-accepted.
func (w *Workflow) AutoValidateHighConfidence(ctx context.Context, limit int) (*BatchResult, error) {
	pending, err := w.store.GetDataPoints(ctx, store.DataPointFilter{
		Status: model.StatusPending,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for _, dp := range pending {
		if dp.Confidence != model.ConfidenceHigh {
			if err := w.StartReview(ctx, dp.ID, "system"); err != nil {
				return nil, err
			}
			result.skip(dp.ID, "confidence "+string(dp.Confidence)+", routed to review")
			continue
		}
		ev := w.engine.Evaluate(dp)
		if !ev.Passed() {
			if err := w.StartReview(ctx, dp.ID, "system"); err != nil {
				return nil, err
			}
			result.skip(dp.ID, "failed error-severity rules, routed to review")
			continue
		}
		ok, err := w.store.UpdateValidation(ctx, store.UpdateValidationInput{
			ID:          dp.ID,
			Status:      model.StatusValidated,
			ValidatedBy: "system",
			Reason:      "auto-validated: high confidence, passed validation",
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			result.skip(dp.ID, "not found")
			continue
		}
		result.Validated = append(result.Validated, dp.ID)
	}
	return result, nil
}

// PendingItems lists points awaiting any attention.
func (w *Workflow) PendingItems(ctx context.Context, limit int) ([]model.DataPoint, error) {
	return w.store.GetDataPoints(ctx, store.DataPointFilter{
		Status: model.StatusPending,
		Limit:  limit,
	})
}

// ReviewQueue lists points currently under review.
func (w *Workflow) ReviewQueue(ctx context.Context, limit int) ([]model.DataPoint, error) {
	return w.store.GetDataPoints(ctx, store.DataPointFilter{
		Status: model.StatusInReview,
		Limit:  limit,
	})
}
