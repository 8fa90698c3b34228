package pipeline

import (
	"context"
	"time"

	"github.com/ketram/parley/pkg/domain"
)

// Stage identifies when an extra handler runs relative to its component.
type Stage string

const (
	// StageBefore runs ahead of the component body.
	StageBefore Stage = "BEFORE"
	// StageAfter runs once the component state is settled.
	StageAfter Stage = "AFTER"
	// StageBeforeAll attaches a handler to the root group only.
	StageBeforeAll Stage = "BEFORE_ALL"
	// StageAfterAll attaches a handler to the root group only.
	StageAfterAll Stage = "AFTER_ALL"
)

// Handler is the user-supplied function a Service wraps.
type Handler func(ctx context.Context, dc *domain.Context, p *Pipeline) error

// InfoHandler is a Handler that additionally receives a runtime snapshot of
// the component invoking it.
type InfoHandler func(ctx context.Context, dc *domain.Context, p *Pipeline, info RuntimeInfo) error

// StartCondition gates a component's execution. It is evaluated at the top
// of every invocation; returning false records the component as NOT_RUN
// without running its hooks or body.
type StartCondition func(ctx context.Context, dc *domain.Context, p *Pipeline) bool

// RuntimeInfo is a read-only snapshot of a component handed to extra
// handlers and info handlers. States is a copy taken at call time; mutating
// it does not affect the engine.
type RuntimeInfo struct {
	Name         string
	Path         string
	Timeout      time.Duration
	Asynchronous bool
	States       map[string]domain.ExecutionState
}
