package model

import "time"

// SourceType categorizes where a piece of intelligence came from.
type SourceType string

const (
	SourceResearchReport SourceType = "research_report"
	SourceNews           SourceType = "news"
	SourceCompany        SourceType = "company"
	SourceInterview      SourceType = "interview"
	SourceGovernment     SourceType = "government"
)

// Sector is a top-level industry category. Names are unique.
type Sector struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Subcategories []Subcategory `json:"subcategories,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Subcategory is nested under a sector; names are unique per sector.
type Subcategory struct {
	ID          string `json:"id"`
	SectorID    string `json:"sector_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Dimension is a tracked metric and its unit (e.g. market_size in USD billions).
type Dimension struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description,omitempty"`
}

// Source is a provenance record shared by data points.
type Source struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	URL              string     `json:"url,omitempty"`
	Type             SourceType `json:"source_type"`
	ReliabilityScore float64    `json:"reliability_score"` // 0.0 to 1.0
	LastAccessed     *time.Time `json:"last_accessed,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
