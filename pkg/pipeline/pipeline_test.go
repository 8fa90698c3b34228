package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ketram/parley/pkg/adapters/memory"
	"github.com/ketram/parley/pkg/domain"
)

// echoActor acknowledges every request and stays on the start label.
type echoActor struct{}

func (echoActor) Respond(ctx context.Context, dc *domain.Context, p *Pipeline) error {
	req, _ := dc.LastRequest()
	dc.AddResponse(domain.NewMessage("ack: " + req.Text))
	dc.AddLabel(p.StartLabel())
	return nil
}

// recorder collects component activity across goroutines.
type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func logService(r *recorder, name string, opts ...Option) *Service {
	return NewService(func(context.Context, *domain.Context, *Pipeline) error {
		r.add(name)
		return nil
	}, append(opts, WithName(name))...)
}

func TestRunTurnAppendsHistory(t *testing.T) {
	store := memory.NewStore()
	p, err := New(echoActor{}, "greet", WithContextStore(store))
	require.NoError(t, err)

	ctx := context.Background()
	dc, err := p.RunTurn(ctx, domain.NewMessage("hello"), "user-1", nil)
	require.NoError(t, err)

	assert.Equal(t, "user-1", dc.ID)
	assert.Equal(t, 1, dc.TurnCount())
	resp, ok := dc.LastResponse()
	require.True(t, ok)
	assert.Equal(t, "ack: hello", resp.Text)
	assert.Equal(t, "greet", dc.LastLabel())

	dc, err = p.RunTurn(ctx, domain.NewMessage("again"), "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, dc.TurnCount())

	req, ok := dc.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "again", req.Text)
	assert.Equal(t, "hello", dc.Requests[0].Text)
	assert.Equal(t, "again", dc.Requests[1].Text)
}

func TestRunTurnGeneratesContextID(t *testing.T) {
	store := memory.NewStore()
	p, err := New(echoActor{}, "greet", WithContextStore(store))
	require.NoError(t, err)

	dc, err := p.RunTurn(context.Background(), domain.NewMessage("hi"), "", nil)
	require.NoError(t, err)
	require.NotEmpty(t, dc.ID)

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{dc.ID}, ids)
}

func TestRunTurnMergesMisc(t *testing.T) {
	p, err := New(echoActor{}, "greet")
	require.NoError(t, err)

	ctx := context.Background()
	dc, err := p.RunTurn(ctx, domain.NewMessage("hi"), "user-1", map[string]any{"channel": "web", "locale": "en"})
	require.NoError(t, err)
	v, _ := dc.MiscValue("channel")
	assert.Equal(t, "web", v)

	dc, err = p.RunTurn(ctx, domain.NewMessage("hi"), "user-1", map[string]any{"channel": "voice"})
	require.NoError(t, err)
	v, _ = dc.MiscValue("channel")
	assert.Equal(t, "voice", v)
	v, _ = dc.MiscValue("locale")
	assert.Equal(t, "en", v)
}

func TestRunTurnClearsTurnData(t *testing.T) {
	p, err := New(echoActor{}, "greet")
	require.NoError(t, err)

	dc, err := p.RunTurn(context.Background(), domain.NewMessage("hi"), "user-1", nil)
	require.NoError(t, err)
	assert.Zero(t, dc.FrameworkData.ServiceStates.Len())
	assert.Empty(t, dc.FrameworkData.ActorData)
}

func TestActorSeesTurnLabels(t *testing.T) {
	var start, fallback any
	actor := actorFunc(func(ctx context.Context, dc *domain.Context, p *Pipeline) error {
		start = dc.FrameworkData.ActorData[StartLabelKey]
		fallback = dc.FrameworkData.ActorData[FallbackLabelKey]
		dc.AddResponse(domain.NewMessage("ok"))
		dc.AddLabel(p.StartLabel())
		return nil
	})
	p, err := New(actor, "greet", WithFallbackLabel("lost"))
	require.NoError(t, err)

	_, err = p.RunTurn(context.Background(), domain.NewMessage("hi"), "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "greet", start)
	assert.Equal(t, "lost", fallback)
}

// actorFunc adapts a function to the Actor interface.
type actorFunc func(ctx context.Context, dc *domain.Context, p *Pipeline) error

func (f actorFunc) Respond(ctx context.Context, dc *domain.Context, p *Pipeline) error {
	return f(ctx, dc, p)
}

func TestBeforeAllAfterAllRunOncePerTurn(t *testing.T) {
	rec := &recorder{}
	group := NewServiceGroup([]Component{
		logService(rec, "a"),
		logService(rec, "b"),
	}, WithName("work"))
	p, err := New(echoActor{}, "greet", WithPreServices(group))
	require.NoError(t, err)

	p.BeforeAll(func(_ context.Context, _ *domain.Context, _ *Pipeline, info RuntimeInfo) error {
		rec.add("before-all:" + info.Path)
		return nil
	})
	p.AfterAll(func(_ context.Context, _ *domain.Context, _ *Pipeline, info RuntimeInfo) error {
		rec.add("after-all:" + info.Path)
		return nil
	})

	_, err = p.RunTurn(context.Background(), domain.NewMessage("hi"), "user-1", nil)
	require.NoError(t, err)

	got := rec.list()
	require.Len(t, got, 4)
	assert.Equal(t, "before-all:pipeline", got[0])
	assert.Equal(t, []string{"a", "b"}, got[1:3])
	assert.Equal(t, "after-all:pipeline", got[3])
}

func TestGlobalHandlerNameFilter(t *testing.T) {
	rec := &recorder{}
	group := NewServiceGroup([]Component{
		logService(rec, "a"),
		logService(rec, "b"),
		logService(rec, "c"),
	}, WithName("work"))
	p, err := New(echoActor{}, "greet", WithPreServices(group))
	require.NoError(t, err)

	seen := &recorder{}
	p.AddGlobalHandler(StageBefore, func(_ context.Context, _ *domain.Context, _ *Pipeline, info RuntimeInfo) error {
		seen.add(info.Name)
		return nil
	}, Whitelist("a", "c"))

	_, err = p.RunTurn(context.Background(), domain.NewMessage("hi"), "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, seen.list())
}

func TestGlobalHandlerBlacklist(t *testing.T) {
	rec := &recorder{}
	group := NewServiceGroup([]Component{
		logService(rec, "a"),
		logService(rec, "b"),
	}, WithName("work"))
	p, err := New(echoActor{}, "greet", WithPreServices(group))
	require.NoError(t, err)

	seen := &recorder{}
	p.AddGlobalHandler(StageAfter, func(_ context.Context, _ *domain.Context, _ *Pipeline, info RuntimeInfo) error {
		seen.add(info.Name)
		return nil
	}, Blacklist("b", "pipeline", "work", "actor_0"))

	_, err = p.RunTurn(context.Background(), domain.NewMessage("hi"), "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, seen.list())
}

func TestRunWithoutMessenger(t *testing.T) {
	p, err := New(echoActor{}, "greet")
	require.NoError(t, err)
	assert.ErrorIs(t, p.Run(context.Background()), ErrNoMessenger)
}

func TestBuildErrors(t *testing.T) {
	t.Run("NilActor", func(t *testing.T) {
		_, err := New(nil, "greet")
		assert.ErrorIs(t, err, ErrNoActor)
	})

	t.Run("NoActorInComponents", func(t *testing.T) {
		_, err := NewFromComponents([]Component{
			NewService(func(context.Context, *domain.Context, *Pipeline) error { return nil }),
		}, "greet")
		assert.ErrorIs(t, err, ErrNoActor)
	})

	t.Run("MultipleActors", func(t *testing.T) {
		_, err := New(echoActor{}, "greet",
			WithPreServices(NewActorService(echoActor{})))
		assert.ErrorIs(t, err, ErrMultipleActors)
	})

	t.Run("DuplicateSiblingNames", func(t *testing.T) {
		noop := func(context.Context, *domain.Context, *Pipeline) error { return nil }
		_, err := New(echoActor{}, "greet", WithPreServices(
			NewService(noop, WithName("dup")),
			NewService(noop, WithName("dup")),
		))
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("NameWithSeparator", func(t *testing.T) {
		noop := func(context.Context, *domain.Context, *Pipeline) error { return nil }
		_, err := New(echoActor{}, "greet", WithPreServices(
			NewService(noop, WithName("bad.name")),
		))
		assert.ErrorIs(t, err, ErrInvalidName)
	})
}

func TestAutoNaming(t *testing.T) {
	noop := func(context.Context, *domain.Context, *Pipeline) error { return nil }
	first := NewService(noop)
	inner := NewService(noop)
	nested := NewServiceGroup([]Component{inner})
	second := NewService(noop)

	p, err := New(echoActor{}, "greet", WithPreServices(first, nested, second))
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, "pipeline.service_0", first.Path())
	assert.Equal(t, "pipeline.group_0", nested.Path())
	assert.Equal(t, "pipeline.group_0.service_0", inner.Path())
	assert.Equal(t, "pipeline.service_1", second.Path())
	assert.Equal(t, "pipeline.actor_0", p.actor.Path())
}
