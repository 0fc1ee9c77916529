package identification

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/lehigh-university-libraries/partident/internal/models"
)

// enginePart mirrors the camelCase JSON the model is instructed to return.
type enginePart struct {
	PartNumber      string   `json:"partNumber"`
	PartName        string   `json:"partName"`
	Station         string   `json:"station"`
	Model           string   `json:"model"`
	Color           string   `json:"color"`
	MatchPercentage *float64 `json:"matchPercentage"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
}

// ParseResult decodes a raw engine response into an IdentificationResult.
// Markdown code fences are tolerated; missing fields are treated as malformed output.
func ParseResult(response string) (*models.IdentificationResult, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	if response == "" {
		return nil, fmt.Errorf("no response from engine")
	}

	var raw struct {
		Parts   *[]enginePart `json:"parts"`
		Summary *string       `json:"summary"`
	}
	if err := json.Unmarshal([]byte(response), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse engine response: %w", err)
	}
	if raw.Parts == nil {
		return nil, fmt.Errorf("engine response is missing parts")
	}
	if raw.Summary == nil {
		return nil, fmt.Errorf("engine response is missing summary")
	}

	result := &models.IdentificationResult{
		Parts:   make([]models.AutoPart, 0, len(*raw.Parts)),
		Summary: *raw.Summary,
	}
	for i, p := range *raw.Parts {
		if p.MatchPercentage == nil {
			return nil, fmt.Errorf("part %d is missing matchPercentage", i)
		}
		pct := *p.MatchPercentage
		if math.IsNaN(pct) || math.IsInf(pct, 0) {
			return nil, fmt.Errorf("part %d has a non-finite matchPercentage", i)
		}
		if pct < MinConfidence {
			slog.Debug("Engine returned match below confidence floor", "part_number", p.PartNumber, "match_percentage", pct)
		}
		result.Parts = append(result.Parts, models.AutoPart{
			PartNumber:      p.PartNumber,
			PartName:        p.PartName,
			Station:         p.Station,
			Model:           p.Model,
			Color:           p.Color,
			MatchPercentage: pct,
			Description:     p.Description,
			Category:        p.Category,
		})
	}

	return result, nil
}
