package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ketram/parley/pkg/domain"
)

// runTreeTurn builds a pipeline around the given pre-actor components, runs
// one turn and returns the recorded activity plus the state snapshot taken
// after the whole tree settled.
func runTreeTurn(t *testing.T, p *Pipeline) map[string]domain.ExecutionState {
	t.Helper()
	var states map[string]domain.ExecutionState
	p.AfterAll(func(_ context.Context, _ *domain.Context, _ *Pipeline, info RuntimeInfo) error {
		states = info.States
		return nil
	})
	_, err := p.RunTurn(context.Background(), domain.NewMessage("hi"), "user-1", nil)
	require.NoError(t, err)
	return states
}

func TestSequentialGroupRunsInOrder(t *testing.T) {
	rec := &recorder{}
	group := NewServiceGroup([]Component{
		logService(rec, "a"),
		logService(rec, "b"),
		logService(rec, "c"),
	}, WithName("work"))
	p, err := New(echoActor{}, "greet", WithPreServices(group))
	require.NoError(t, err)

	states := runTreeTurn(t, p)
	assert.Equal(t, []string{"a", "b", "c"}, rec.list())
	assert.Equal(t, domain.StateFinished, states["pipeline.work"])
	assert.Equal(t, domain.StateFinished, states["pipeline.work.a"])
}

func TestAsynchronousGroupJoinsBeforeNextSibling(t *testing.T) {
	rec := &recorder{}
	slow := NewService(func(context.Context, *domain.Context, *Pipeline) error {
		time.Sleep(50 * time.Millisecond)
		rec.add("slow")
		return nil
	}, WithName("slow"))
	group := NewServiceGroup([]Component{
		slow,
		logService(rec, "fast"),
	}, WithName("fanout"), Asynchronous())

	p, err := New(echoActor{}, "greet", WithPreServices(group, logService(rec, "after")))
	require.NoError(t, err)

	states := runTreeTurn(t, p)
	got := rec.list()
	require.Len(t, got, 3)
	// Concurrent children may record in either order; the sequential
	// sibling must come after the join.
	assert.ElementsMatch(t, []string{"slow", "fast"}, got[:2])
	assert.Equal(t, "after", got[2])
	assert.Equal(t, domain.StateFinished, states["pipeline.fanout"])
}

func TestChildFailureDoesNotStopSiblings(t *testing.T) {
	rec := &recorder{}
	failing := NewService(func(context.Context, *domain.Context, *Pipeline) error {
		return errors.New("boom")
	}, WithName("failing"))
	group := NewServiceGroup([]Component{
		failing,
		logService(rec, "next"),
	}, WithName("work"))

	p, err := New(echoActor{}, "greet", WithPreServices(group))
	require.NoError(t, err)

	states := runTreeTurn(t, p)
	assert.Equal(t, []string{"next"}, rec.list())
	assert.Equal(t, domain.StateFailed, states["pipeline.work.failing"])
	assert.Equal(t, domain.StateFinished, states["pipeline.work.next"])
	// The group itself still finishes.
	assert.Equal(t, domain.StateFinished, states["pipeline.work"])
	assert.Equal(t, domain.StateFinished, states["pipeline.actor_0"])
}

func TestComponentPanicIsContained(t *testing.T) {
	rec := &recorder{}
	panicking := NewService(func(context.Context, *domain.Context, *Pipeline) error {
		panic("unexpected")
	}, WithName("panicking"))
	p, err := New(echoActor{}, "greet", WithPreServices(panicking, logService(rec, "next")))
	require.NoError(t, err)

	states := runTreeTurn(t, p)
	assert.Equal(t, []string{"next"}, rec.list())
	assert.Equal(t, domain.StateFailed, states["pipeline.panicking"])
	assert.Equal(t, domain.StateFinished, states["pipeline.next"])
}

func TestStartConditionGatesComponent(t *testing.T) {
	rec := &recorder{}
	never := func(context.Context, *domain.Context, *Pipeline) bool { return false }
	hook := func(_ context.Context, _ *domain.Context, _ *Pipeline, _ RuntimeInfo) error {
		rec.add("hook")
		return nil
	}
	gated := NewService(func(context.Context, *domain.Context, *Pipeline) error {
		rec.add("body")
		return nil
	},
		WithName("gated"),
		WithStartCondition(never),
		WithBeforeHandler(NewExtraHandler([]ExtraHandlerFunc{hook})),
		WithAfterHandler(NewExtraHandler([]ExtraHandlerFunc{hook})),
	)
	p, err := New(echoActor{}, "greet", WithPreServices(gated))
	require.NoError(t, err)

	states := runTreeTurn(t, p)
	assert.Empty(t, rec.list())
	assert.Equal(t, domain.StateNotRun, states["pipeline.gated"])
}

func TestServiceFinishedCondition(t *testing.T) {
	t.Run("WaitForDependency", func(t *testing.T) {
		rec := &recorder{}
		dep := NewService(func(context.Context, *domain.Context, *Pipeline) error {
			time.Sleep(30 * time.Millisecond)
			rec.add("dep")
			return nil
		}, WithName("dep"))
		waiter := logService(rec, "waiter",
			WithStartCondition(ServiceFinished("pipeline.fanout.dep", true)))
		group := NewServiceGroup([]Component{dep, waiter},
			WithName("fanout"), Asynchronous())

		p, err := New(echoActor{}, "greet", WithPreServices(group))
		require.NoError(t, err)

		states := runTreeTurn(t, p)
		assert.Equal(t, []string{"dep", "waiter"}, rec.list())
		assert.Equal(t, domain.StateFinished, states["pipeline.fanout.waiter"])
	})

	t.Run("NoWaitReadsOnce", func(t *testing.T) {
		rec := &recorder{}
		// Sequential group: the dependency has not run yet when the
		// condition is read, so the component is skipped.
		waiter := logService(rec, "waiter",
			WithStartCondition(ServiceFinished("pipeline.dep", false)))
		dep := logService(rec, "dep")

		p, err := New(echoActor{}, "greet", WithPreServices(waiter, dep))
		require.NoError(t, err)

		states := runTreeTurn(t, p)
		assert.Equal(t, []string{"dep"}, rec.list())
		assert.Equal(t, domain.StateNotRun, states["pipeline.waiter"])
	})

	t.Run("FailedDependency", func(t *testing.T) {
		rec := &recorder{}
		dep := NewService(func(context.Context, *domain.Context, *Pipeline) error {
			return errors.New("boom")
		}, WithName("dep"))
		waiter := logService(rec, "waiter",
			WithStartCondition(ServiceFinished("pipeline.dep", false)))

		p, err := New(echoActor{}, "greet", WithPreServices(dep, waiter))
		require.NoError(t, err)

		states := runTreeTurn(t, p)
		assert.Empty(t, rec.list())
		assert.Equal(t, domain.StateNotRun, states["pipeline.waiter"])
	})
}

func TestAsynchronousTimeout(t *testing.T) {
	rec := &recorder{}
	slow := NewService(func(ctx context.Context, _ *domain.Context, _ *Pipeline) error {
		select {
		case <-time.After(500 * time.Millisecond):
			rec.add("slow")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, WithName("slow"), Asynchronous(), WithTimeout(20*time.Millisecond))
	group := NewServiceGroup([]Component{
		slow,
		logService(rec, "fast"),
	}, WithName("fanout"), Asynchronous())

	p, err := New(echoActor{}, "greet", WithPreServices(group))
	require.NoError(t, err)

	start := time.Now()
	states := runTreeTurn(t, p)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 300*time.Millisecond, "join must not wait out the slow body")
	assert.Equal(t, []string{"fast"}, rec.list())
	assert.Equal(t, domain.StateFailed, states["pipeline.fanout.slow"])
	assert.Equal(t, domain.StateFinished, states["pipeline.fanout.fast"])
	assert.Equal(t, domain.StateFinished, states["pipeline.fanout"])
}

func TestAsynchronousTimeoutNotReached(t *testing.T) {
	rec := &recorder{}
	quick := NewService(func(context.Context, *domain.Context, *Pipeline) error {
		rec.add("quick")
		return nil
	}, WithName("quick"), Asynchronous(), WithTimeout(time.Second))
	group := NewServiceGroup([]Component{quick}, WithName("fanout"), Asynchronous())

	p, err := New(echoActor{}, "greet", WithPreServices(group))
	require.NoError(t, err)

	states := runTreeTurn(t, p)
	assert.Equal(t, []string{"quick"}, rec.list())
	assert.Equal(t, domain.StateFinished, states["pipeline.fanout.quick"])
}

func TestExtraHandlerFailureFailsComponent(t *testing.T) {
	rec := &recorder{}
	failingHook := func(_ context.Context, _ *domain.Context, _ *Pipeline, _ RuntimeInfo) error {
		return errors.New("hook boom")
	}
	svc := NewService(func(context.Context, *domain.Context, *Pipeline) error {
		rec.add("body")
		return nil
	}, WithName("svc"), WithBeforeHandler(NewExtraHandler([]ExtraHandlerFunc{failingHook})))

	p, err := New(echoActor{}, "greet", WithPreServices(svc))
	require.NoError(t, err)

	states := runTreeTurn(t, p)
	assert.Empty(t, rec.list(), "body must not run after a failed before handler")
	assert.Equal(t, domain.StateFailed, states["pipeline.svc"])
}

func TestExtraHandlerTimeoutIsWarningOnly(t *testing.T) {
	slowHook := func(ctx context.Context, _ *domain.Context, _ *Pipeline, _ RuntimeInfo) error {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
		}
		return nil
	}
	svc := NewService(func(context.Context, *domain.Context, *Pipeline) error { return nil },
		WithName("svc"),
		WithBeforeHandler(NewExtraHandler([]ExtraHandlerFunc{slowHook}, ExtraTimeout(10*time.Millisecond))),
	)

	p, err := New(echoActor{}, "greet", WithPreServices(svc))
	require.NoError(t, err)

	start := time.Now()
	states := runTreeTurn(t, p)
	assert.Less(t, time.Since(start), 300*time.Millisecond)
	assert.Equal(t, domain.StateFinished, states["pipeline.svc"])
}

func TestConcurrentExtraHandler(t *testing.T) {
	rec := &recorder{}
	hook := func(name string) ExtraHandlerFunc {
		return func(_ context.Context, _ *domain.Context, _ *Pipeline, _ RuntimeInfo) error {
			rec.add(name)
			return nil
		}
	}
	svc := NewService(func(context.Context, *domain.Context, *Pipeline) error {
		rec.add("body")
		return nil
	}, WithName("svc"), WithBeforeHandler(
		NewExtraHandler([]ExtraHandlerFunc{hook("h1"), hook("h2")}, ExtraConcurrent())))

	p, err := New(echoActor{}, "greet", WithPreServices(svc))
	require.NoError(t, err)

	runTreeTurn(t, p)
	got := rec.list()
	require.Len(t, got, 3)
	assert.ElementsMatch(t, []string{"h1", "h2"}, got[:2])
	assert.Equal(t, "body", got[2])
}
