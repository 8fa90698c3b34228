package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidName is returned when an explicit component name contains
	// the path separator.
	ErrInvalidName = errors.New("component name must not contain '.'")

	// ErrDuplicateName is returned when two siblings end up with the same
	// name.
	ErrDuplicateName = errors.New("duplicate component name among siblings")

	// ErrNoActor is returned when the built tree has no actor component.
	ErrNoActor = errors.New("pipeline has no actor component")

	// ErrMultipleActors is returned when the built tree has more than one
	// actor component.
	ErrMultipleActors = errors.New("pipeline has more than one actor component")
)

// finalizeTree assigns names and paths across the tree and locates the
// single actor leaf. Unnamed components get a name derived from their kind
// and sibling ordinal, e.g. "service_0" or "group_1".
func finalizeTree(root *ServiceGroup) (*actorService, error) {
	root.base().path = root.Name()
	actor, count, err := finalizeChildren(root)
	if err != nil {
		return nil, err
	}
	switch {
	case count == 0:
		return nil, ErrNoActor
	case count > 1:
		return nil, ErrMultipleActors
	}
	return actor, nil
}

func finalizeChildren(g *ServiceGroup) (*actorService, int, error) {
	seen := make(map[string]struct{}, len(g.components))
	counts := make(map[string]int)
	var (
		actor *actorService
		total int
	)
	for _, comp := range g.components {
		c := comp.base()
		if c.name == "" {
			c.name = fmt.Sprintf("%s_%d", comp.kind(), counts[comp.kind()])
		} else if strings.Contains(c.name, ".") {
			return nil, 0, fmt.Errorf("%w: %q", ErrInvalidName, c.name)
		}
		counts[comp.kind()]++

		if _, dup := seen[c.name]; dup {
			return nil, 0, fmt.Errorf("%w: %q in %q", ErrDuplicateName, c.name, g.path)
		}
		seen[c.name] = struct{}{}
		c.path = g.path + "." + c.name

		switch child := comp.(type) {
		case *ServiceGroup:
			a, n, err := finalizeChildren(child)
			if err != nil {
				return nil, 0, err
			}
			if a != nil {
				actor = a
			}
			total += n
		case *actorService:
			actor = child
			total++
		}
	}
	return actor, total, nil
}
