package model

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// Confidence is the qualitative trust level attached to a data point.
type Confidence string

const (
	ConfidenceHigh       Confidence = "high"       // multiple corroborating sources
	ConfidenceMedium     Confidence = "medium"     // single reliable source
	ConfidenceLow        Confidence = "low"        // uncorroborated or older source
	ConfidenceUnverified Confidence = "unverified" // no source verification
)

// Valid reports whether c is one of the four enumerated levels.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceUnverified:
		return true
	}
	return false
}

// ValidationStatus tracks where a data point sits in the review workflow.
type ValidationStatus string

const (
	StatusPending   ValidationStatus = "pending"   // newly ingested, awaiting review
	StatusInReview  ValidationStatus = "in_review" // currently being reviewed
	StatusValidated ValidationStatus = "validated" // confirmed accurate
	StatusRejected  ValidationStatus = "rejected"  // rejected as inaccurate
	StatusOutdated  ValidationStatus = "outdated"  // previously valid, now superseded
)

// Valid reports whether s is one of the five enumerated states.
func (s ValidationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInReview, StatusValidated, StatusRejected, StatusOutdated:
		return true
	}
	return false
}

// ValueKind discriminates the three mutually exclusive value representations.
type ValueKind string

const (
	ValueNone       ValueKind = ""           // no value recorded
	ValueNumber     ValueKind = "number"     // stored in value_numeric
	ValueText       ValueKind = "text"       // stored in value_text
	ValueStructured ValueKind = "structured" // stored in value_structured as JSON
)

// Value is the tagged union holding a data point's observation. Exactly one
// representation is populated per value; the Kind tag says which.
type Value struct {
	Kind       ValueKind      `json:"kind"`
	Number     float64        `json:"number,omitempty"`
	Text       string         `json:"text,omitempty"`
	Structured map[string]any `json:"structured,omitempty"`
}

// NumberValue returns a numeric value.
func NumberValue(n float64) Value {
	return Value{Kind: ValueNumber, Number: n}
}

// TextValue returns a free-text value.
func TextValue(s string) Value {
	return Value{Kind: ValueText, Text: s}
}

// StructuredValue returns a structured (nested key/value) value.
func StructuredValue(m map[string]any) Value {
	return Value{Kind: ValueStructured, Structured: m}
}

// IsZero reports whether no representation is populated.
func (v Value) IsZero() bool {
	return v.Kind == ValueNone
}

// NumberPtr returns the numeric value, or nil for non-numeric kinds.
func (v Value) NumberPtr() *float64 {
	if v.Kind != ValueNumber {
		return nil
	}
	n := v.Number
	return &n
}

// Validate enforces the exactly-one-representation invariant.
func (v Value) Validate() error {
	switch v.Kind {
	case ValueNone:
		return nil
	case ValueNumber:
		if v.Text != "" || v.Structured != nil {
			return eris.New("value: number kind carries extra representations")
		}
	case ValueText:
		if v.Structured != nil {
			return eris.New("value: text kind carries structured representation")
		}
	case ValueStructured:
		if v.Text != "" {
			return eris.New("value: structured kind carries text representation")
		}
		if v.Structured == nil {
			return eris.New("value: structured kind without payload")
		}
	default:
		return eris.Errorf("value: unknown kind %q", v.Kind)
	}
	return nil
}

// MarshalStructured serializes the structured payload for storage.
func (v Value) MarshalStructured() (string, error) {
	b, err := json.Marshal(v.Structured)
	if err != nil {
		return "", eris.Wrap(err, "value: marshal structured")
	}
	return string(b), nil
}

// DataPoint is a single dated, sourced observation of a dimension for a
// sector. Reads from the store are denormalized: the *Name fields are
// joined in from the taxonomy and source tables.
type DataPoint struct {
	ID              string           `json:"id"`
	SectorID        string           `json:"sector_id,omitempty"`
	SectorName      string           `json:"sector_name,omitempty"`
	SubcategoryID   string           `json:"subcategory_id,omitempty"`
	SubcategoryName string           `json:"subcategory_name,omitempty"`
	DimensionID     string           `json:"dimension_id"`
	DimensionName   string           `json:"dimension_name"`
	DimensionUnit   string           `json:"dimension_unit,omitempty"`
	Value           Value            `json:"value"`
	Year            int              `json:"year,omitempty"`
	Quarter         int              `json:"quarter,omitempty"` // 1-4, 0 if annual
	Month           int              `json:"month,omitempty"`   // 1-12, 0 if not monthly
	SourceID        string           `json:"source_id,omitempty"`
	SourceName      string           `json:"source_name,omitempty"`
	SourceURL       string           `json:"source_url,omitempty"`
	Confidence      Confidence       `json:"confidence"`
	Status          ValidationStatus `json:"validation_status"`
	ValidatedBy     string           `json:"validated_by,omitempty"`
	ValidatedAt     *time.Time       `json:"validated_at,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}
