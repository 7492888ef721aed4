package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mj1618/swipegen/internal/model"
	"gopkg.in/yaml.v3"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatYAML, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported output format: %q (expected yaml or json)", s)
	}
}

// AnalyzeResult is the output of the `analyze` command.
type AnalyzeResult struct {
	Source    string         `yaml:"source"    json:"source"`
	Width     int            `yaml:"width"     json:"width"`
	Height    int            `yaml:"height"    json:"height"`
	Clickable []model.Region `yaml:"clickable" json:"clickable"`
	Slidable  []model.Region `yaml:"slidable"  json:"slidable"`
}

// DiffResult is the output of the `diff` command.
type DiffResult struct {
	Before    string  `yaml:"before"    json:"before"`
	After     string  `yaml:"after"     json:"after"`
	Ratio     float64 `yaml:"ratio"     json:"ratio"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
	Changed   bool    `yaml:"changed"   json:"changed"`
}

// ActionResult is the output of the `tap` and `swipe` commands.
type ActionResult struct {
	OK               bool               `yaml:"ok"                          json:"ok"`
	Changed          bool               `yaml:"changed"                     json:"changed"`
	Record           model.ActionRecord `yaml:"record"                      json:"record"`
	ScreenshotBefore string             `yaml:"screenshot_before,omitempty" json:"screenshot_before,omitempty"`
	ScreenshotAfter  *string            `yaml:"screenshot_after,omitempty"  json:"screenshot_after,omitempty"`
}

// NewActionResult reports an executed interaction.
func NewActionResult(n model.ExplorationNode) ActionResult {
	return ActionResult{
		OK:               true,
		Changed:          n.HasChanged,
		Record:           n.ActionData,
		ScreenshotBefore: n.ScreenshotBefore,
		ScreenshotAfter:  n.ScreenshotAfter,
	}
}

// ExploreEntry summarizes one explored app.
type ExploreEntry struct {
	App     string         `yaml:"app"              json:"app"`
	Report  string         `yaml:"report,omitempty" json:"report,omitempty"`
	Summary *model.Summary `yaml:"summary,omitempty" json:"summary,omitempty"`
	Error   string         `yaml:"error,omitempty"  json:"error,omitempty"`
}

// Print serializes v to stdout in the current output format.
func Print(v interface{}) error {
	return Fprint(os.Stdout, v)
}

// Fprint serializes v to w in the current output format.
func Fprint(w io.Writer, v interface{}) error {
	switch OutputFormat {
	case FormatJSON:
		return FprintJSON(w, v, PrettyOutput)
	case FormatYAML:
		return FprintYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", OutputFormat)
	}
}

// PrintJSON serializes v to stdout as compact single-line JSON.
func PrintJSON(v interface{}) error {
	return FprintJSON(os.Stdout, v, false)
}

// FprintJSON serializes v to w as JSON, indented when pretty is set.
func FprintJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

// PrintYAML serializes v to stdout as YAML.
func PrintYAML(v interface{}) error {
	return FprintYAML(os.Stdout, v)
}

// FprintYAML serializes v to w as YAML.
func FprintYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}
