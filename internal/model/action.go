package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionKind discriminates action records.
type ActionKind string

const (
	ActionTap   ActionKind = "tap"
	ActionSwipe ActionKind = "swipe"
	ActionDrag  ActionKind = "drag"
)

// ParseActionKind converts a flag value to an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(strings.ToLower(s)); k {
	case ActionTap, ActionSwipe, ActionDrag:
		return k, nil
	default:
		return "", fmt.Errorf("unknown action kind: %q (expected tap, swipe, or drag)", s)
	}
}

// Point is a normalized [x, y] coordinate pair.
type Point [2]int

// Speed labels.
const (
	SpeedFast = "fast"
	SpeedSlow = "slow"
)

// Direction is either a compass label (swipe) or an angle in radians (drag).
// It serializes as a bare string or a bare number.
type Direction struct {
	Label   string
	Angle   float64
	IsAngle bool
}

// LabelDirection returns a compass direction.
func LabelDirection(label string) Direction { return Direction{Label: label} }

// AngleDirection returns a radian direction.
func AngleDirection(rad float64) Direction { return Direction{Angle: rad, IsAngle: true} }

func (d Direction) String() string {
	if d.IsAngle {
		return fmt.Sprintf("%.4f", d.Angle)
	}
	return d.Label
}

func (d Direction) value() any {
	if d.IsAngle {
		return d.Angle
	}
	return d.Label
}

// MarshalJSON implements json.Marshaler.
func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.value())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Direction) UnmarshalJSON(b []byte) error {
	var label string
	if err := json.Unmarshal(b, &label); err == nil {
		*d = LabelDirection(label)
		return nil
	}
	var angle float64
	if err := json.Unmarshal(b, &angle); err != nil {
		return fmt.Errorf("direction must be a string or a number: %s", string(b))
	}
	*d = AngleDirection(angle)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Direction) MarshalYAML() (any, error) {
	return d.value(), nil
}

// ActionRecord is the training record produced for one executed interaction.
// Position is used by taps; Start, End and the derived fields by swipes and
// drags. Only Success and Timestamp are assigned after execution.
type ActionRecord struct {
	Action    ActionKind
	Position  Point
	Start     Point
	End       Point
	Duration  int
	Direction Direction
	Distance  int
	Speed     string
	BBox      *[4]int
	Intent    string
	Success   bool
	Timestamp float64
}

type tapRecord struct {
	Action    ActionKind `yaml:"action" json:"action"`
	Position  Point      `yaml:"position" json:"position"`
	BBox      *[4]int    `yaml:"bbox" json:"bbox"`
	Intent    string     `yaml:"intent" json:"intent"`
	Success   bool       `yaml:"success" json:"success"`
	Timestamp float64    `yaml:"timestamp" json:"timestamp"`
}

type swipeRecord struct {
	Action    ActionKind `yaml:"action" json:"action"`
	Start     Point      `yaml:"start" json:"start"`
	End       Point      `yaml:"end" json:"end"`
	Duration  int        `yaml:"duration" json:"duration"`
	Direction Direction  `yaml:"direction" json:"direction"`
	Distance  int        `yaml:"distance" json:"distance"`
	Speed     string     `yaml:"speed" json:"speed"`
	BBox      *[4]int    `yaml:"bbox" json:"bbox"`
	Intent    string     `yaml:"intent" json:"intent"`
	Success   bool       `yaml:"success" json:"success"`
	Timestamp float64    `yaml:"timestamp" json:"timestamp"`
}

// wire returns the kind-specific shape that is actually serialized.
func (a ActionRecord) wire() any {
	if a.Action == ActionTap {
		return tapRecord{
			Action:    a.Action,
			Position:  a.Position,
			BBox:      a.BBox,
			Intent:    a.Intent,
			Success:   a.Success,
			Timestamp: a.Timestamp,
		}
	}
	return swipeRecord{
		Action:    a.Action,
		Start:     a.Start,
		End:       a.End,
		Duration:  a.Duration,
		Direction: a.Direction,
		Distance:  a.Distance,
		Speed:     a.Speed,
		BBox:      a.BBox,
		Intent:    a.Intent,
		Success:   a.Success,
		Timestamp: a.Timestamp,
	}
}

// MarshalJSON implements json.Marshaler.
func (a ActionRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.wire())
}

// MarshalYAML implements yaml.Marshaler.
func (a ActionRecord) MarshalYAML() (any, error) {
	return a.wire(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *ActionRecord) UnmarshalJSON(b []byte) error {
	var head struct {
		Action ActionKind `json:"action"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	switch head.Action {
	case ActionTap:
		var t tapRecord
		if err := json.Unmarshal(b, &t); err != nil {
			return err
		}
		*a = ActionRecord{
			Action:    t.Action,
			Position:  t.Position,
			BBox:      t.BBox,
			Intent:    t.Intent,
			Success:   t.Success,
			Timestamp: t.Timestamp,
		}
	case ActionSwipe, ActionDrag:
		var s swipeRecord
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = ActionRecord{
			Action:    s.Action,
			Start:     s.Start,
			End:       s.End,
			Duration:  s.Duration,
			Direction: s.Direction,
			Distance:  s.Distance,
			Speed:     s.Speed,
			BBox:      s.BBox,
			Intent:    s.Intent,
			Success:   s.Success,
			Timestamp: s.Timestamp,
		}
	default:
		return fmt.Errorf("unknown action %q", head.Action)
	}
	return nil
}
