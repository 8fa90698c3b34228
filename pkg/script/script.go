// Package script provides a declarative dialog actor: a graph of labeled
// nodes with condition-guarded transitions, definable in Go or loaded from
// YAML.
package script

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ketram/parley/pkg/domain"
	"github.com/ketram/parley/pkg/pipeline"
)

// ErrUnknownLabel is returned when a label does not name a script node.
var ErrUnknownLabel = errors.New("unknown script label")

// Condition guards a transition. It inspects the turn's request and may
// consult the dialog context.
type Condition func(request domain.Message, dc *domain.Context) bool

// Transition moves the dialog to Dest when Cond passes.
type Transition struct {
	Dest string
	Cond Condition
}

// Node is one dialog state: the response it produces and the transitions
// leading out of it, tried in order.
type Node struct {
	Response    string
	Transitions []Transition
}

// Script maps labels to nodes.
type Script map[string]Node

// Validate checks that every transition destination names a node.
func (s Script) Validate() error {
	for label, node := range s {
		for _, tr := range node.Transitions {
			if _, ok := s[tr.Dest]; !ok {
				return fmt.Errorf("%w: transition %q -> %q", ErrUnknownLabel, label, tr.Dest)
			}
		}
	}
	return nil
}

// Exact matches when the request text equals pattern, ignoring case and
// surrounding whitespace.
func Exact(pattern string) Condition {
	return func(request domain.Message, _ *domain.Context) bool {
		return strings.EqualFold(strings.TrimSpace(request.Text), pattern)
	}
}

// Contains matches when the request text contains pattern, ignoring case.
func Contains(pattern string) Condition {
	return func(request domain.Message, _ *domain.Context) bool {
		return strings.Contains(strings.ToLower(request.Text), strings.ToLower(pattern))
	}
}

// MatchAny matches every request. Useful as the last transition of a node.
func MatchAny() Condition {
	return func(domain.Message, *domain.Context) bool { return true }
}

// Actor walks the script one node per turn. It resumes from the context's
// last label (or the pipeline's start label on a fresh dialog), follows the
// first transition whose condition passes the turn's request, and responds
// with the destination node's text. When no transition passes, it moves to
// the fallback label.
type Actor struct {
	script Script
}

// NewActor builds an actor over the script.
func NewActor(s Script) *Actor {
	return &Actor{script: s}
}

// ValidateLabels checks the script's internal consistency and that the
// start and fallback labels name existing nodes. The pipeline calls it at
// build time.
func (a *Actor) ValidateLabels(start, fallback string) error {
	if err := a.script.Validate(); err != nil {
		return err
	}
	if _, ok := a.script[start]; !ok {
		return fmt.Errorf("%w: start label %q", ErrUnknownLabel, start)
	}
	if _, ok := a.script[fallback]; !ok {
		return fmt.Errorf("%w: fallback label %q", ErrUnknownLabel, fallback)
	}
	return nil
}

// Respond implements pipeline.Actor.
func (a *Actor) Respond(ctx context.Context, dc *domain.Context, p *pipeline.Pipeline) error {
	actorData := dc.FrameworkData.ActorData
	start, _ := actorData[pipeline.StartLabelKey].(string)
	fallback, _ := actorData[pipeline.FallbackLabelKey].(string)

	current := dc.LastLabel()
	if current == "" {
		current = start
	}
	node, ok := a.script[current]
	if !ok {
		// The stored label belongs to an older script revision.
		p.Logger().Warn("stale dialog label, restarting from fallback", "label", current)
		node = a.script[fallback]
	}

	request, _ := dc.LastRequest()
	next := fallback
	for _, tr := range node.Transitions {
		if tr.Cond(request, dc) {
			next = tr.Dest
			break
		}
	}

	dest, ok := a.script[next]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLabel, next)
	}
	dc.AddResponse(domain.NewMessage(dest.Response))
	dc.AddLabel(next)
	return nil
}
