// Package tests provides reusable contract suites that adapter packages run
// against their ContextStore implementations.
package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ketram/parley/pkg/domain"
	"github.com/ketram/parley/pkg/ports"
)

// RunContextStoreContract verifies that a store complies with the
// ports.ContextStore semantics the engine relies on.
func RunContextStoreContract(t *testing.T, store ports.ContextStore) {
	t.Helper()
	ctx := context.Background()
	const id = "contract-ctx"

	t.Run("LoadMissing", func(t *testing.T) {
		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrContextNotFound)
	})

	t.Run("SaveLoadRoundTrip", func(t *testing.T) {
		dc := domain.NewContext(id)
		dc.AddRequest(domain.NewMessage("hello"))
		dc.AddResponse(domain.NewMessage("hi there"))
		dc.AddLabel("greet")
		dc.SetMisc("channel", "test")

		require.NoError(t, store.Save(ctx, id, dc))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, loaded.ID)

		req, ok := loaded.LastRequest()
		require.True(t, ok)
		assert.Equal(t, "hello", req.Text)

		resp, ok := loaded.LastResponse()
		require.True(t, ok)
		assert.Equal(t, "hi there", resp.Text)

		assert.Equal(t, "greet", loaded.LastLabel())

		channel, ok := loaded.MiscValue("channel")
		require.True(t, ok)
		assert.Equal(t, "test", channel)
	})

	t.Run("SaveIsolatesCaller", func(t *testing.T) {
		dc := domain.NewContext(id)
		dc.SetMisc("k", "v1")
		require.NoError(t, store.Save(ctx, id, dc))

		// Mutations after Save must not leak into the stored copy.
		dc.SetMisc("k", "v2")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		v, _ := loaded.MiscValue("k")
		assert.Equal(t, "v1", v)
	})

	t.Run("TransientStateNotPersisted", func(t *testing.T) {
		dc := domain.NewContext(id)
		dc.FrameworkData.ServiceStates.Set("pipeline.svc", domain.StateFinished)
		require.NoError(t, store.Save(ctx, id, dc))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, loaded.FrameworkData.ServiceStates.Len())
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, domain.NewContext(id)))
		require.NoError(t, store.Delete(ctx, id))
		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrContextNotFound)
	})
}
