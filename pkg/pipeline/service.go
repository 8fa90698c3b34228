package pipeline

import (
	"context"

	"github.com/ketram/parley/pkg/domain"
)

// Service is a leaf component wrapping a user handler.
type Service struct {
	core
	handler InfoHandler
}

// NewService wraps a plain handler in a leaf component.
func NewService(handler Handler, opts ...Option) *Service {
	return NewInfoService(func(ctx context.Context, dc *domain.Context, p *Pipeline, _ RuntimeInfo) error {
		return handler(ctx, dc, p)
	}, opts...)
}

// NewInfoService wraps a handler that wants the component's runtime snapshot.
func NewInfoService(handler InfoHandler, opts ...Option) *Service {
	return &Service{core: newCore(opts...), handler: handler}
}

func (s *Service) kind() string { return "service" }

// Invoke runs the wrapped handler through the component state machine.
func (s *Service) Invoke(ctx context.Context, dc *domain.Context, p *Pipeline) {
	s.invoke(ctx, dc, p, func(ctx context.Context, dc *domain.Context, p *Pipeline) error {
		return s.handler(ctx, dc, p, s.runtimeInfo(dc))
	})
}
