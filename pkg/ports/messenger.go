package ports

import (
	"context"

	"github.com/ketram/parley/pkg/domain"
)

// TurnHandler drives one full pipeline turn: it processes a request for a
// context ID, optionally merging misc overrides into the context, and
// returns the updated context. The pipeline hands its own turn driver to a
// messenger in this shape.
type TurnHandler func(ctx context.Context, request domain.Message, ctxID string, misc map[string]any) (*domain.Context, error)

// Messenger is a transport that receives user requests and delivers
// responses. Connect blocks, invoking handler once per incoming request,
// until the transport closes or ctx is cancelled.
type Messenger interface {
	Connect(ctx context.Context, handler TurnHandler) error
}
