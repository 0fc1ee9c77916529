package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/partident/internal/models"
	"github.com/lehigh-university-libraries/partident/internal/scan"
)

func TestNewIdentification(t *testing.T) {
	outcome := &scan.Outcome{
		SessionID: "s1",
		Result: &models.IdentificationResult{
			Parts:   []models.AutoPart{{PartNumber: "A1", MatchPercentage: 85}},
			Summary: "ok",
		},
		Images: scan.BatchResult{Items: []scan.ImageResult{
			{PhotoID: "p1", Angle: "Angle 1", URL: "/static/uploads/1.jpg"},
			{PhotoID: "p2", Angle: "Angle 2", Err: errors.New("bucket unavailable")},
		}},
		MatchesErr: errors.New("timeout"),
		Duration:   1234 * time.Millisecond,
	}

	doc := NewIdentification(RunConfig{Provider: "gemini", Model: "m", Timestamp: "t"}, outcome)
	if doc.Summary != "ok" || len(doc.Matches) != 1 || doc.Duration != "1.234s" {
		t.Errorf("Unexpected report %+v", doc)
	}
	if len(doc.Warnings) != 2 {
		t.Errorf("Expected 2 warnings, got %v", doc.Warnings)
	}
	if doc.Images[1].Error != "bucket unavailable" {
		t.Errorf("Expected image error, got %+v", doc.Images[1])
	}

	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"sessionid: s1", "part_number: A1", "match_percentage: 85", "angle: Angle 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
}
