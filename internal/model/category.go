package model

import (
	"fmt"
	"strings"
)

// Category is the interaction hypothesis attached to a detected region.
// It is decided once when the detector output is ingested.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryClickable
	CategorySlidable
)

// String returns the wire name of the category.
func (c Category) String() string {
	switch c {
	case CategoryClickable:
		return "clickable"
	case CategorySlidable:
		return "slidable"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so categories serialize by name
// in both JSON and YAML.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextMarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "clickable":
		*c = CategoryClickable
	case "slidable":
		*c = CategorySlidable
	case "unknown", "":
		*c = CategoryUnknown
	default:
		return fmt.Errorf("unknown category %q", string(b))
	}
	return nil
}

// clickTypeKeywords are free-text type hints that mark a region as clickable
// when the detector did not state a usable category.
var clickTypeKeywords = []string{"button", "icon", "tab", "card", "item"}

// slideTypeKeywords are free-text type hints that mark a region as slidable.
var slideTypeKeywords = []string{"list", "scroll", "carousel", "swipe"}

// ClassifyCategory maps the detector's raw category and type strings to a
// Category. The explicit category wins; the type keywords are only consulted
// when it names neither kind.
func ClassifyCategory(rawCategory, rawType string) Category {
	cat := strings.ToLower(rawCategory)
	switch {
	case strings.Contains(cat, "click"):
		return CategoryClickable
	case strings.Contains(cat, "slid"):
		return CategorySlidable
	}

	typ := strings.ToLower(rawType)
	for _, k := range clickTypeKeywords {
		if strings.Contains(typ, k) {
			return CategoryClickable
		}
	}
	for _, k := range slideTypeKeywords {
		if strings.Contains(typ, k) {
			return CategorySlidable
		}
	}
	return CategoryUnknown
}
