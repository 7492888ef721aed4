package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ExplorationNode is the outcome of one executed interaction.
type ExplorationNode struct {
	Type             ActionKind   `yaml:"type" json:"type"`
	HasChanged       bool         `yaml:"has_changed" json:"has_changed"`
	ActionData       ActionRecord `yaml:"action_data" json:"action_data"`
	ScreenshotBefore string       `yaml:"screenshot_before" json:"screenshot_before"`
	ScreenshotAfter  *string      `yaml:"screenshot_after" json:"screenshot_after"`
	RegionInfo       Region       `yaml:"region_info" json:"region_info"`
}

// LevelOneNode is a root-screen interaction together with the follow-up
// interactions run on the screen it led to. L2Exploration is nil when descent
// was never attempted and an empty, non-nil slice when it was attempted but
// yielded nothing.
type LevelOneNode struct {
	ExplorationNode `yaml:",inline"`
	L2Exploration   []ExplorationNode `yaml:"l2_exploration" json:"l2_exploration"`
}

// MarshalYAML keeps the nil/empty distinction of L2Exploration, which yaml.v3
// would otherwise write as [] in both cases.
func (n LevelOneNode) MarshalYAML() (any, error) {
	l2 := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	if n.L2Exploration != nil {
		l2 = &yaml.Node{}
		if err := l2.Encode(n.L2Exploration); err != nil {
			return nil, err
		}
	}
	return struct {
		ExplorationNode `yaml:",inline"`
		L2Exploration   *yaml.Node `yaml:"l2_exploration"`
	}{n.ExplorationNode, l2}, nil
}

// ResultTree is the depth-2 exploration result for one app.
type ResultTree struct {
	L1Slides []LevelOneNode `yaml:"l1_slides" json:"l1_slides"`
	L1Clicks []LevelOneNode `yaml:"l1_clicks" json:"l1_clicks"`
}

// NewResultTree returns a tree whose lists serialize as [] rather than null.
func NewResultTree() *ResultTree {
	return &ResultTree{
		L1Slides: []LevelOneNode{},
		L1Clicks: []LevelOneNode{},
	}
}

// Summary counts the nodes in a result tree.
type Summary struct {
	L1Clicks  int `yaml:"l1_clicks" json:"l1_clicks"`
	L1Slides  int `yaml:"l1_slides" json:"l1_slides"`
	L2Actions int `yaml:"l2_actions" json:"l2_actions"`
	Changed   int `yaml:"changed" json:"changed"`
}

// Summary computes node counts over the whole tree. Changed counts nodes at
// both levels.
func (t *ResultTree) Summary() Summary {
	s := Summary{L1Clicks: len(t.L1Clicks), L1Slides: len(t.L1Slides)}
	for _, list := range [][]LevelOneNode{t.L1Slides, t.L1Clicks} {
		for _, n := range list {
			if n.HasChanged {
				s.Changed++
			}
			s.L2Actions += len(n.L2Exploration)
			for _, c := range n.L2Exploration {
				if c.HasChanged {
					s.Changed++
				}
			}
		}
	}
	return s
}

// Validate checks that descent was only recorded below changed screens.
func (t *ResultTree) Validate() error {
	check := func(list string, nodes []LevelOneNode) error {
		for i, n := range nodes {
			if n.L2Exploration != nil && !n.HasChanged {
				return fmt.Errorf("%s[%d]: l2_exploration present on an unchanged screen", list, i)
			}
		}
		return nil
	}
	if err := check("l1_slides", t.L1Slides); err != nil {
		return err
	}
	return check("l1_clicks", t.L1Clicks)
}
