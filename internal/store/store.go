package store

import (
	"context"
	"time"

	"github.com/sells-group/market-intel/internal/model"
)

// DataPointFilter narrows GetDataPoints. Zero fields are ignored.
type DataPointFilter struct {
	Sector    string                 `json:"sector,omitempty"`
	Dimension string                 `json:"dimension,omitempty"`
	Year      int                    `json:"year,omitempty"`
	Status    model.ValidationStatus `json:"validation_status,omitempty"`
	Limit     int                    `json:"limit,omitempty"`
}

// ChangeFilter narrows GetChanges.
type ChangeFilter struct {
	Table string     `json:"table,omitempty"`
	Since *time.Time `json:"since,omitempty"`
	Limit int        `json:"limit,omitempty"`
}

// AddDataPointInput carries everything needed to record an observation.
// Dimension is mandatory; Sector and Subcategory are names that must
// already exist in the taxonomy when given.
type AddDataPointInput struct {
	Dimension   string
	Value       model.Value
	Sector      string
	Subcategory string
	Year        int
	Quarter     int // 1-4
	Month       int // 1-12
	SourceID    string
	Confidence  model.Confidence
	Notes       string
	Actor       string
}

// UpdateValidationInput carries a validation-status transition.
type UpdateValidationInput struct {
	ID          string
	Status      model.ValidationStatus
	ValidatedBy string
	Notes       string
	Reason      string
}

// Store is the persistence contract for the intelligence core. Both
// backends implement identical semantics: every mutation is one atomic
// transaction that also appends its changes_log entry.
type Store interface {
	// Taxonomy
	SeedTaxonomy(ctx context.Context, tax Taxonomy) (*SeedResult, error)
	ListSectors(ctx context.Context) ([]model.Sector, error)
	GetSectorByName(ctx context.Context, name string) (*model.Sector, error)
	ListDimensions(ctx context.Context) ([]model.Dimension, error)
	GetDimensionByName(ctx context.Context, name string) (*model.Dimension, error)

	// Sources
	AddSource(ctx context.Context, src model.Source) (string, error)
	GetOrCreateSource(ctx context.Context, src model.Source) (string, error)

	// Data points
	AddDataPoint(ctx context.Context, in AddDataPointInput) (string, error)
	GetDataPoints(ctx context.Context, filter DataPointFilter) ([]model.DataPoint, error)
	GetDataPoint(ctx context.Context, id string) (*model.DataPoint, error)
	UpdateValidation(ctx context.Context, in UpdateValidationInput) (bool, error)

	// Audit log (append-only; no update or delete exists by design)
	RecordChange(ctx context.Context, entry model.ChangeLogEntry) error
	GetChanges(ctx context.Context, filter ChangeFilter) ([]model.ChangeLogEntry, error)

	// Detected changes
	SaveDetectedChanges(ctx context.Context, changes []model.Change) error
	ListDetectedChanges(ctx context.Context, limit int) ([]model.Change, error)

	// Stats
	Stats(ctx context.Context) (*model.Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100
