package ports

import (
	"context"

	"github.com/ketram/parley/pkg/domain"
)

// ContextStore persists dialog contexts between turns. The engine performs a
// single Load at turn start and a single Save at turn end per context ID.
type ContextStore interface {
	// Load retrieves the context for an ID.
	// Returns domain.ErrContextNotFound if the ID has no stored context.
	Load(ctx context.Context, id string) (*domain.Context, error)

	// Save persists the context under an ID.
	Save(ctx context.Context, id string, dc *domain.Context) error

	// Delete removes the context for an ID.
	Delete(ctx context.Context, id string) error
}
