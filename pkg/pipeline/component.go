package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/ketram/parley/pkg/domain"
)

// Component is a node in the pipeline tree: a leaf Service, the dialog actor
// or a ServiceGroup. Implementations live in this package; the interface is
// closed.
type Component interface {
	// Name is the sibling-unique component name, assigned at build time
	// when not set explicitly.
	Name() string
	// Path is the dot-joined chain of names from the root group down to
	// this component. It keys the per-turn state store.
	Path() string
	// Asynchronous reports whether the component is dispatched on its own
	// goroutine inside a concurrent group.
	Asynchronous() bool
	// Timeout is the execution bound for asynchronous components; zero
	// means none.
	Timeout() time.Duration
	// State reads the component's execution state for the current turn.
	State(dc *domain.Context) domain.ExecutionState
	// Invoke runs the component against the context. Failures are
	// recorded in the context's state store, never returned.
	Invoke(ctx context.Context, dc *domain.Context, p *Pipeline)

	base() *core
	kind() string
}

// Option configures a component at construction time.
type Option func(*core)

// WithName sets an explicit component name. Names must be unique among
// siblings and must not contain the path separator; both are checked when
// the pipeline is built.
func WithName(name string) Option {
	return func(c *core) { c.name = name }
}

// Asynchronous marks the component for concurrent dispatch inside its
// parent group.
func Asynchronous() Option {
	return func(c *core) { c.async = true }
}

// WithTimeout bounds an asynchronous component's execution. On expiry the
// component is recorded as FAILED and its subtree is cancelled; sequential
// components ignore the setting.
func WithTimeout(d time.Duration) Option {
	return func(c *core) { c.timeout = d }
}

// WithStartCondition replaces the default Always gate.
func WithStartCondition(cond StartCondition) Option {
	return func(c *core) { c.startCondition = cond }
}

// WithBeforeHandler attaches callbacks that run ahead of the component body.
func WithBeforeHandler(h *ExtraHandler) Option {
	return func(c *core) {
		h.stage = StageBefore
		c.before = h
	}
}

// WithAfterHandler attaches callbacks that run after the component settles.
func WithAfterHandler(h *ExtraHandler) Option {
	return func(c *core) {
		h.stage = StageAfter
		c.after = h
	}
}

// core carries the state machine shared by every component kind.
type core struct {
	name           string
	path           string
	timeout        time.Duration
	async          bool
	startCondition StartCondition
	before         *ExtraHandler
	after          *ExtraHandler
}

func newCore(opts ...Option) core {
	c := core{
		startCondition: Always,
		before:         &ExtraHandler{stage: StageBefore},
		after:          &ExtraHandler{stage: StageAfter},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *core) Name() string           { return c.name }
func (c *core) Path() string           { return c.path }
func (c *core) Asynchronous() bool     { return c.async }
func (c *core) Timeout() time.Duration { return c.timeout }
func (c *core) base() *core            { return c }

func (c *core) State(dc *domain.Context) domain.ExecutionState {
	return dc.FrameworkData.ServiceStates.Get(c.path)
}

func (c *core) attach(stage Stage, fn ExtraHandlerFunc) {
	if stage == StageBefore {
		c.before.add(fn)
	} else {
		c.after.add(fn)
	}
}

func (c *core) runtimeInfo(dc *domain.Context) RuntimeInfo {
	return RuntimeInfo{
		Name:         c.name,
		Path:         c.path,
		Timeout:      c.timeout,
		Asynchronous: c.async,
		States:       dc.FrameworkData.ServiceStates.Snapshot(),
	}
}

type bodyFunc func(ctx context.Context, dc *domain.Context, p *Pipeline) error

// invoke wraps run with the timeout machinery. Timeouts apply only to
// asynchronous components; a sequential component would stall the whole turn
// either way.
func (c *core) invoke(ctx context.Context, dc *domain.Context, p *Pipeline, body bodyFunc) {
	if !c.async || c.timeout <= 0 {
		c.run(ctx, dc, p, body)
		return
	}

	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(tctx, dc, p, body)
	}()

	select {
	case <-done:
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			dc.FrameworkData.ServiceStates.Set(c.path, domain.StateFailed)
			p.log().Warn("component timed out",
				"component", c.path,
				"timeout", c.timeout)
		}
	}
}

// run drives the component state machine for one turn. A body that keeps
// running past its deadline is abandoned; the ctx.Err checks keep it from
// overwriting the FAILED state recorded by invoke.
func (c *core) run(ctx context.Context, dc *domain.Context, p *Pipeline, body bodyFunc) {
	states := dc.FrameworkData.ServiceStates

	if !c.startCondition(ctx, dc, p) {
		states.Set(c.path, domain.StateNotRun)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			if ctx.Err() == nil {
				states.Set(c.path, domain.StateFailed)
			}
			p.log().Error("component panicked",
				"component", c.path,
				"panic", r)
		}
	}()

	if err := c.before.run(ctx, dc, p, c.runtimeInfo(dc)); err != nil {
		states.Set(c.path, domain.StateFailed)
		p.log().Error("before handler failed",
			"component", c.path,
			"err", err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	states.Set(c.path, domain.StateRunning)
	if err := body(ctx, dc, p); err != nil {
		if ctx.Err() == nil {
			states.Set(c.path, domain.StateFailed)
			p.log().Error("component execution failed",
				"component", c.path,
				"err", err)
		}
	} else if ctx.Err() == nil && states.Get(c.path) != domain.StateFailed {
		states.Set(c.path, domain.StateFinished)
	}

	if err := c.after.run(ctx, dc, p, c.runtimeInfo(dc)); err != nil && ctx.Err() == nil {
		states.Set(c.path, domain.StateFailed)
		p.log().Error("after handler failed",
			"component", c.path,
			"err", err)
	}
}
