package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ketram/parley/pkg/domain"
	"github.com/ketram/parley/pkg/pipeline"
)

type okActor struct{}

func (okActor) Respond(ctx context.Context, dc *domain.Context, p *pipeline.Pipeline) error {
	dc.AddResponse(domain.NewMessage("ok"))
	dc.AddLabel(p.StartLabel())
	return nil
}

func TestCollectorCountsTurnsAndStates(t *testing.T) {
	svc := pipeline.NewService(func(context.Context, *domain.Context, *pipeline.Pipeline) error {
		return nil
	}, pipeline.WithName("svc"))
	failing := pipeline.NewService(func(context.Context, *domain.Context, *pipeline.Pipeline) error {
		return errors.New("boom")
	}, pipeline.WithName("failing"))

	p, err := pipeline.New(okActor{}, "greet", pipeline.WithPreServices(svc, failing))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.Attach(p, pipeline.Whitelist("svc", "failing"))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := p.RunTurn(ctx, domain.NewMessage("hi"), "user-1", nil)
		require.NoError(t, err)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(c.turns))
	assert.Equal(t, float64(2),
		testutil.ToFloat64(c.states.WithLabelValues("pipeline.svc", string(domain.StateFinished))))
	assert.Equal(t, float64(2),
		testutil.ToFloat64(c.states.WithLabelValues("pipeline.failing", string(domain.StateFailed))))

	// One histogram series per instrumented component.
	assert.Equal(t, 2, testutil.CollectAndCount(c.durations))

	// No leaked start times once all turns completed.
	c.mu.Lock()
	assert.Empty(t, c.starts)
	c.mu.Unlock()
}

func TestNewCollectorRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)
	_, err = NewCollector(reg)
	assert.Error(t, err)
}
