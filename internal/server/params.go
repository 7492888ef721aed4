package server

import "strings"

// Tool arguments arrive as decoded JSON, so numbers are float64.

func stringParam(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func floatParam(params map[string]interface{}, key string, def float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func intParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func hasParam(params map[string]interface{}, key string) bool {
	_, ok := params[key]
	return ok
}
