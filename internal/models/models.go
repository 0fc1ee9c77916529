package models

import "time"

// MinAngles is the number of distinct captures required before identification.
const MinAngles = 3

// HistoryLimit caps how many sessions are listed for history.
const HistoryLimit = 15

// Stage is the state of the scan workflow
type Stage string

const (
	StageIdle      Stage = "IDLE"
	StageAnalyzing Stage = "ANALYZING"
	StageResult    Stage = "RESULT"
)

// PhotoCapture represents one captured frame of the part
type PhotoCapture struct {
	ID     string `json:"id" yaml:"id"`
	Data   []byte `json:"-" yaml:"-"`
	Format string `json:"format" yaml:"format"` // "jpeg", "png", "gif", "webp"
	Angle  string `json:"angle" yaml:"angle"`
}

// CatalogItem represents one canonical reference part
type CatalogItem struct {
	PartNumber string `json:"part_number" yaml:"part_number"`
	PartName   string `json:"part_name" yaml:"part_name"`
	Station    string `json:"station" yaml:"station"`
}

// AutoPart is one identification match
type AutoPart struct {
	PartNumber      string  `json:"part_number" yaml:"part_number"`
	PartName        string  `json:"part_name" yaml:"part_name"`
	Station         string  `json:"station" yaml:"station"`
	Model           string  `json:"model" yaml:"model"`
	Color           string  `json:"color" yaml:"color"`
	MatchPercentage float64 `json:"match_percentage" yaml:"match_percentage"`
	Description     string  `json:"description" yaml:"description,omitempty"`
	Category        string  `json:"category" yaml:"category,omitempty"`
}

// IdentificationResult is what the engine returns for one analysis
type IdentificationResult struct {
	Parts   []AutoPart `json:"parts" yaml:"parts"`
	Summary string     `json:"summary" yaml:"summary"`
}

// CapturedImage references a stored image of a session
type CapturedImage struct {
	ImageURL   string `json:"image_url" yaml:"image_url"`
	AngleLabel string `json:"angle_label" yaml:"angle_label"`
}

// Session is a persisted analysis run
type Session struct {
	ID           string          `json:"id" yaml:"id"`
	CreatedAt    time.Time       `json:"created_at" yaml:"created_at"`
	Summary      string          `json:"summary" yaml:"summary"`
	TotalMatches int             `json:"total_matches" yaml:"total_matches"`
	Images       []CapturedImage `json:"images" yaml:"images"`
	Matches      []AutoPart      `json:"matches" yaml:"matches"`
}
