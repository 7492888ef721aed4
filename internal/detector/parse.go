package detector

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mj1618/swipegen/internal/model"
)

var jsonArrayRe = regexp.MustCompile(`(?s)\[\s*\{.*?\}\s*\]`)

// extractArray finds the JSON array in free model output: the first
// `[ {...} ]` run, else everything from the first '[' to the last ']'.
func extractArray(text string) (string, bool) {
	if m := jsonArrayRe.FindString(text); m != "" {
		return m, true
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// rawRegion is one region as the model wrote it. Fields are loosely typed
// because models are inconsistent about quoting.
type rawRegion struct {
	BBox        []json.RawMessage `json:"bbox"`
	Category    string            `json:"category"`
	Type        string            `json:"type"`
	Direction   string            `json:"direction"`
	Description string            `json:"description"`
	Interaction string            `json:"interaction"`
}

// ParseRegions extracts regions from model output. Text without any JSON
// array yields no regions and no error; a malformed array is an error.
// Entries without a four-number bbox are dropped and every kept region has
// its category classified.
func ParseRegions(text string) ([]model.Region, error) {
	arr, ok := extractArray(text)
	if !ok {
		return []model.Region{}, nil
	}
	arr = strings.NewReplacer("\n", " ", "\t", " ").Replace(arr)

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(arr), &entries); err != nil {
		return nil, fmt.Errorf("parse regions: %w", err)
	}

	regions := make([]model.Region, 0, len(entries))
	for _, e := range entries {
		var raw rawRegion
		if err := json.Unmarshal(e, &raw); err != nil {
			continue
		}
		bbox, ok := parseBBox(raw.BBox)
		if !ok {
			continue
		}
		regions = append(regions, model.Region{
			BBox:        bbox,
			Category:    model.ClassifyCategory(raw.Category, raw.Type),
			Type:        raw.Type,
			Direction:   raw.Direction,
			Description: raw.Description,
			Interaction: raw.Interaction,
		})
	}
	return regions, nil
}

func parseBBox(vals []json.RawMessage) ([4]float64, bool) {
	var out [4]float64
	if len(vals) != 4 {
		return out, false
	}
	for i, v := range vals {
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			out[i] = f
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return out, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return out, false
		}
		out[i] = f
	}
	return out, true
}
