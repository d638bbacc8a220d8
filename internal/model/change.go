package model

import (
	"encoding/json"
	"time"
)

// ChangeType is the mutation kind recorded in the audit log.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeLogEntry is one append-only audit record. Entries are never updated
// or deleted; the sequence is the authoritative mutation history.
type ChangeLogEntry struct {
	ID           string          `json:"id"`
	TableName    string          `json:"table_name"`
	RecordID     string          `json:"record_id"`
	ChangeType   ChangeType      `json:"change_type"`
	OldValue     json.RawMessage `json:"old_value,omitempty"` // snapshot of prior state
	NewValue     json.RawMessage `json:"new_value,omitempty"` // snapshot of new state
	ChangedBy    string          `json:"changed_by"`
	ChangeReason string          `json:"change_reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ChangeKind classifies the direction of a detected change.
type ChangeKind string

const (
	ChangeNew      ChangeKind = "new"      // no prior-period value
	ChangeRemoved  ChangeKind = "removed"  // no current-period value
	ChangeIncrease ChangeKind = "increase"
	ChangeDecrease ChangeKind = "decrease"
)

// Significance classifies how large a detected change is relative to the
// configured thresholds. Minimal changes are dropped from detector output.
type Significance string

const (
	SignificanceHigh    Significance = "high"
	SignificanceMedium  Significance = "medium"
	SignificanceLow     Significance = "low"
	SignificanceMinimal Significance = "minimal"
)

// Change is a detected period-over-period difference for one
// (sector, dimension) pair.
type Change struct {
	DataPointID   string       `json:"data_point_id"`
	Sector        string       `json:"sector"`
	Dimension     string       `json:"dimension"`
	OldValue      *float64     `json:"old_value"`
	NewValue      *float64     `json:"new_value"`
	PercentChange *float64     `json:"percent_change"`
	Kind          ChangeKind   `json:"change_type"`
	Significance  Significance `json:"significance"`
	Period        string       `json:"period"` // e.g. "2025-01", "2025"
	DetectedAt    time.Time    `json:"detected_at"`
}

// Stats summarizes store contents for dashboards.
type Stats struct {
	TableCounts    map[string]int           `json:"table_counts"`
	ByStatus       map[ValidationStatus]int `json:"by_validation_status"`
	BySector       map[string]int           `json:"data_points_by_sector"`
	RecentActivity map[string]int           `json:"recent_activity"` // day -> data points created
}
