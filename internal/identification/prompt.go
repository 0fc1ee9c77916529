package identification

import (
	"encoding/json"
	"fmt"

	"github.com/lehigh-university-libraries/partident/internal/models"
)

// MinConfidence is the confidence floor the engine is asked to respect.
const MinConfidence = 70

const basePrompt = `You are an automotive parts specialist with decades of experience identifying OEM and aftermarket components on assembly lines.

The attached images show ONE physical automotive part photographed from different angles, in capture order.

INSTRUCTIONS:
1. Examine every angle before deciding: shape, mounting points, connectors, stampings, casting marks, labels and color.
2. Identify the part and list the candidate matches. For each match provide:
   - partNumber: the part number
   - partName: the part name
   - station: the assembly station or location where the part is used
   - model: the specific vehicle model or variant
   - color: the part color
   - matchPercentage: your confidence from 0 to 100
   - description: a short technical description
   - category: the part category (e.g. "Body", "Electrical", "Suspension")
3. Return ONLY matches with a matchPercentage of at least %d.
4. Order matches from most to least confident.
5. Be precise and technical. Do not invent part numbers.

OUTPUT FORMAT:
Respond with ONLY a JSON object in the following format:

{
  "parts": [
    {
      "partNumber": "...",
      "partName": "...",
      "station": "...",
      "model": "...",
      "color": "...",
      "matchPercentage": 0,
      "description": "...",
      "category": "..."
    }
  ],
  "summary": "One or two sentences describing what the part is"
}

If nothing reaches the confidence floor, return an empty "parts" array and explain why in "summary".`

const catalogPrompt = `

REFERENCE CATALOG:
Use this reference catalog to verify the partNumber, partName and station. The catalog does not list model or color; determine those from the images.
%s`

// BuildPrompt returns the identification prompt, appending the catalog snapshot when present.
func BuildPrompt(catalog []models.CatalogItem) (string, error) {
	prompt := fmt.Sprintf(basePrompt, MinConfidence)
	if len(catalog) == 0 {
		return prompt, nil
	}

	type entry struct {
		PartNumber string `json:"partNumber"`
		PartName   string `json:"partName"`
		Station    string `json:"station"`
	}
	entries := make([]entry, len(catalog))
	for i, item := range catalog {
		entries[i] = entry{PartNumber: item.PartNumber, PartName: item.PartName, Station: item.Station}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to marshal catalog: %w", err)
	}
	return prompt + fmt.Sprintf(catalogPrompt, data), nil
}
