package pipeline

import (
	"context"
	"slices"
	"sync"

	"github.com/ketram/parley/pkg/domain"
)

// ServiceGroup is a component holding an ordered list of child components.
//
// A sequential group (the default) invokes its children strictly in list
// order, each one to completion before the next. A group marked
// Asynchronous dispatches every child on its own goroutine, in list order,
// and waits for all of them before settling.
//
// Child failures are recorded in the state store but never fail the group:
// a group that ran its body to the join point finishes FINISHED.
type ServiceGroup struct {
	core
	components []Component
}

// NewServiceGroup builds a group over the given children.
func NewServiceGroup(components []Component, opts ...Option) *ServiceGroup {
	return &ServiceGroup{core: newCore(opts...), components: components}
}

func (g *ServiceGroup) kind() string { return "group" }

// Components returns the group's children in dispatch order.
func (g *ServiceGroup) Components() []Component {
	return slices.Clone(g.components)
}

// Invoke runs the children through the component state machine.
func (g *ServiceGroup) Invoke(ctx context.Context, dc *domain.Context, p *Pipeline) {
	g.invoke(ctx, dc, p, g.runComponents)
}

func (g *ServiceGroup) runComponents(ctx context.Context, dc *domain.Context, p *Pipeline) error {
	if !g.async {
		for _, comp := range g.components {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			comp.Invoke(ctx, dc, p)
		}
		return nil
	}

	var wg sync.WaitGroup
	for _, comp := range g.components {
		wg.Add(1)
		go func(comp Component) {
			defer wg.Done()
			comp.Invoke(ctx, dc, p)
		}(comp)
	}
	wg.Wait()
	return nil
}

// addExtraHandler attaches fn at the given stage to every component in the
// subtree, the group included, whose name passes the filter.
func (g *ServiceGroup) addExtraHandler(stage Stage, fn ExtraHandlerFunc, pass func(name string) bool) {
	if pass(g.name) {
		g.attach(stage, fn)
	}
	for _, comp := range g.components {
		if child, ok := comp.(*ServiceGroup); ok {
			child.addExtraHandler(stage, fn, pass)
			continue
		}
		if pass(comp.Name()) {
			comp.base().attach(stage, fn)
		}
	}
}
