package script

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrUnknownMatcher is returned for a transition with an unrecognized match
// kind.
var ErrUnknownMatcher = errors.New("unknown transition matcher")

type fileScript struct {
	Nodes map[string]fileNode `mapstructure:"nodes"`
}

type fileNode struct {
	Response    string           `mapstructure:"response"`
	Transitions []fileTransition `mapstructure:"transitions"`
}

type fileTransition struct {
	Dest    string `mapstructure:"dest"`
	Match   string `mapstructure:"match"`
	Pattern string `mapstructure:"pattern"`
}

// Parse builds a Script from YAML. Each node lists a response and its
// transitions; a transition names its destination, a matcher kind (exact,
// contains or any) and, for text matchers, a pattern:
//
//	nodes:
//	  greet:
//	    response: "Hello! What can I get you?"
//	    transitions:
//	      - { dest: order, match: contains, pattern: coffee }
//	      - { dest: greet, match: any }
func Parse(data []byte) (Script, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse script yaml: %w", err)
	}

	var file fileScript
	if err := mapstructure.Decode(raw, &file); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}

	s := make(Script, len(file.Nodes))
	for label, fn := range file.Nodes {
		node := Node{Response: fn.Response}
		for _, ft := range fn.Transitions {
			cond, err := buildCondition(ft)
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", label, err)
			}
			node.Transitions = append(node.Transitions, Transition{Dest: ft.Dest, Cond: cond})
		}
		s[label] = node
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads and parses a YAML script file.
func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %q: %w", path, err)
	}
	return Parse(data)
}

func buildCondition(ft fileTransition) (Condition, error) {
	switch ft.Match {
	case "exact":
		return Exact(ft.Pattern), nil
	case "contains":
		return Contains(ft.Pattern), nil
	case "any", "":
		return MatchAny(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMatcher, ft.Match)
	}
}
