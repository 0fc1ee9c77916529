package report

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/partident/internal/models"
	"github.com/lehigh-university-libraries/partident/internal/scan"
)

// RunConfig describes how an identification was produced
type RunConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Catalog   int    `yaml:"catalogitems"`
	Timestamp string `yaml:"timestamp"`
}

// ImageLine is one stored capture in a report
type ImageLine struct {
	Angle string `yaml:"angle"`
	URL   string `yaml:"url,omitempty"`
	Error string `yaml:"error,omitempty"`
}

// Identification is the YAML document printed after a scan
type Identification struct {
	Config    RunConfig         `yaml:"config"`
	SessionID string            `yaml:"sessionid"`
	Summary   string            `yaml:"summary"`
	Matches   []models.AutoPart `yaml:"matches"`
	Images    []ImageLine       `yaml:"images"`
	Warnings  []string          `yaml:"warnings,omitempty"`
	Duration  string            `yaml:"duration"`
}

// NewIdentification builds a report from a completed scan.
func NewIdentification(cfg RunConfig, outcome *scan.Outcome) Identification {
	if cfg.Timestamp == "" {
		cfg.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	}

	doc := Identification{
		Config:    cfg,
		SessionID: outcome.SessionID,
		Matches:   []models.AutoPart{},
		Images:    make([]ImageLine, 0, len(outcome.Images.Items)),
		Duration:  outcome.Duration.Round(time.Millisecond).String(),
	}
	if outcome.Result != nil {
		doc.Summary = outcome.Result.Summary
		doc.Matches = outcome.Result.Parts
	}

	for _, item := range outcome.Images.Items {
		line := ImageLine{Angle: item.Angle, URL: item.URL}
		if item.Err != nil {
			line.Error = item.Err.Error()
		}
		doc.Images = append(doc.Images, line)
	}
	if failed := outcome.Images.Failed(); failed > 0 {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("%d image(s) were not stored", failed))
	}
	if outcome.MatchesErr != nil {
		doc.Warnings = append(doc.Warnings, "matches were not saved to history: "+outcome.MatchesErr.Error())
	}
	return doc
}

// Write encodes v as YAML.
func Write(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush YAML: %w", err)
	}
	return nil
}

// History is the YAML document for recent sessions
type History struct {
	Sessions []models.Session `yaml:"sessions"`
}

// Catalog is the YAML document for the parts catalog
type Catalog struct {
	Total int                  `yaml:"total"`
	Items []models.CatalogItem `yaml:"items"`
}
