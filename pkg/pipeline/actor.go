package pipeline

import (
	"context"

	"github.com/ketram/parley/pkg/domain"
)

// Keys under which the engine publishes the turn's dialog labels in
// FrameworkData.ActorData before invoking the tree. The actor reads them to
// pick its starting node; both entries are cleared with the rest of the
// turn-scoped data.
const (
	StartLabelKey    = "start_label"
	FallbackLabelKey = "fallback_label"
)

// Actor produces the turn's response: it reads the last request from the
// context and appends a response and a label. Every pipeline carries exactly
// one actor component.
type Actor interface {
	Respond(ctx context.Context, dc *domain.Context, p *Pipeline) error
}

// LabelValidator is implemented by actors that can check the pipeline's
// start and fallback labels against their dialog graph. When the actor
// implements it, validation runs once at build time.
type LabelValidator interface {
	ValidateLabels(start, fallback string) error
}

// NewActorService wraps an actor in a leaf component so it can be placed
// explicitly inside a component list. The built tree must contain exactly
// one such leaf.
func NewActorService(a Actor, opts ...Option) Component {
	return &actorService{core: newCore(opts...), actor: a}
}

type actorService struct {
	core
	actor Actor
}

func (s *actorService) kind() string { return "actor" }

func (s *actorService) Invoke(ctx context.Context, dc *domain.Context, p *Pipeline) {
	s.invoke(ctx, dc, p, func(ctx context.Context, dc *domain.Context, p *Pipeline) error {
		return s.actor.Respond(ctx, dc, p)
	})
}
