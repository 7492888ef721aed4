package platform

import (
	"fmt"
	"strconv"
	"strings"
)

// ProviderOptions selects and configures the device backend.
type ProviderOptions struct {
	Serial  string // Device serial (empty = the only attached device)
	ADBPath string // adb executable (empty = "adb" on PATH)
}

// ParseBBox parses an "x1,y1,x2,y2" string on the normalized [0,1000] grid.
func ParseBBox(s string) ([4]float64, error) {
	var out [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return out, fmt.Errorf("invalid bbox %q: expected x1,y1,x2,y2", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		if v < 0 || v > 1000 {
			return out, fmt.Errorf("invalid bbox %q: %v outside [0,1000]", s, v)
		}
		out[i] = v
	}
	return out, nil
}
