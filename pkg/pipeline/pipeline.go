package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ketram/parley/internal/logging"
	"github.com/ketram/parley/pkg/adapters/memory"
	"github.com/ketram/parley/pkg/domain"
	"github.com/ketram/parley/pkg/ports"
)

// ErrNoMessenger is returned by Run when no messenger was configured.
var ErrNoMessenger = errors.New("pipeline has no messenger configured")

// Pipeline owns the component tree and drives it one turn at a time.
type Pipeline struct {
	root          *ServiceGroup
	actor         *actorService
	store         ports.ContextStore
	messenger     ports.Messenger
	startLabel    string
	fallbackLabel string
	logger        *slog.Logger
}

type settings struct {
	pre       []Component
	post      []Component
	rootOpts  []Option
	store     ports.ContextStore
	messenger ports.Messenger
	logger    *slog.Logger
	fallback  string
}

// PipelineOption configures a Pipeline at construction time.
type PipelineOption func(*settings)

// WithPreServices places components ahead of the actor in the root group.
func WithPreServices(components ...Component) PipelineOption {
	return func(s *settings) { s.pre = components }
}

// WithPostServices places components after the actor in the root group.
func WithPostServices(components ...Component) PipelineOption {
	return func(s *settings) { s.post = components }
}

// WithContextStore sets the context persistence backend. Defaults to an
// in-memory store.
func WithContextStore(store ports.ContextStore) PipelineOption {
	return func(s *settings) { s.store = store }
}

// WithMessenger sets the transport Run connects to.
func WithMessenger(m ports.Messenger) PipelineOption {
	return func(s *settings) { s.messenger = m }
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(s *settings) { s.logger = logger }
}

// WithFallbackLabel sets the label the actor falls back to when no
// transition matches. Defaults to the start label.
func WithFallbackLabel(label string) PipelineOption {
	return func(s *settings) { s.fallback = label }
}

// WithRootOptions forwards component options to the root group, e.g. extra
// handlers or a turn-wide timeout. The root group's name stays "pipeline".
func WithRootOptions(opts ...Option) PipelineOption {
	return func(s *settings) { s.rootOpts = opts }
}

// New builds a pipeline around a single actor: the root group runs the
// pre-services, the actor, then the post-services.
func New(actor Actor, startLabel string, opts ...PipelineOption) (*Pipeline, error) {
	if actor == nil {
		return nil, ErrNoActor
	}
	s := applyOptions(opts)
	components := make([]Component, 0, len(s.pre)+1+len(s.post))
	components = append(components, s.pre...)
	components = append(components, NewActorService(actor))
	components = append(components, s.post...)
	return build(components, startLabel, s)
}

// NewFromComponents builds a pipeline from an explicit component list, which
// must contain exactly one actor leaf (see NewActorService).
func NewFromComponents(components []Component, startLabel string, opts ...PipelineOption) (*Pipeline, error) {
	return build(components, startLabel, applyOptions(opts))
}

func applyOptions(opts []PipelineOption) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func build(components []Component, startLabel string, s settings) (*Pipeline, error) {
	rootOpts := append(slices.Clone(s.rootOpts), WithName("pipeline"))
	root := NewServiceGroup(components, rootOpts...)

	actorLeaf, err := finalizeTree(root)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	fallback := s.fallback
	if fallback == "" {
		fallback = startLabel
	}
	if v, ok := actorLeaf.actor.(LabelValidator); ok {
		if err := v.ValidateLabels(startLabel, fallback); err != nil {
			return nil, fmt.Errorf("validate labels: %w", err)
		}
	}

	if s.store == nil {
		s.store = memory.NewStore()
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}

	return &Pipeline{
		root:          root,
		actor:         actorLeaf,
		store:         s.store,
		messenger:     s.messenger,
		startLabel:    startLabel,
		fallbackLabel: fallback,
		logger:        s.logger,
	}, nil
}

// Root returns the root service group.
func (p *Pipeline) Root() Component { return p.root }

// Actor returns the pipeline's dialog actor.
func (p *Pipeline) Actor() Actor { return p.actor.actor }

// StartLabel returns the label a fresh dialog starts from.
func (p *Pipeline) StartLabel() string { return p.startLabel }

// FallbackLabel returns the label used when no transition matches.
func (p *Pipeline) FallbackLabel() string { return p.fallbackLabel }

// Logger returns the pipeline's structured logger.
func (p *Pipeline) Logger() *slog.Logger { return p.log() }

func (p *Pipeline) log() *slog.Logger {
	if p == nil || p.logger == nil {
		return logging.NewNop()
	}
	return p.logger
}

// RunTurn processes one request against the context identified by ctxID and
// returns the updated context. An empty ctxID starts a fresh dialog under a
// generated ID. Component failures are recorded in the turn's state store
// and logged; only storage errors fail the turn.
func (p *Pipeline) RunTurn(ctx context.Context, request domain.Message, ctxID string, misc map[string]any) (*domain.Context, error) {
	var dc *domain.Context
	if ctxID == "" {
		dc = domain.NewContext("")
	} else {
		loaded, err := p.store.Load(ctx, ctxID)
		switch {
		case errors.Is(err, domain.ErrContextNotFound):
			dc = domain.NewContext(ctxID)
		case err != nil:
			return nil, fmt.Errorf("load context %q: %w", ctxID, err)
		default:
			dc = loaded
		}
	}

	if len(misc) > 0 {
		dc.MergeMisc(misc)
	}
	dc.FrameworkData.ActorData[StartLabelKey] = p.startLabel
	dc.FrameworkData.ActorData[FallbackLabelKey] = p.fallbackLabel

	dc.AddRequest(request)
	p.root.Invoke(ctx, dc, p)
	dc.FrameworkData.ClearTurn()

	if err := p.store.Save(ctx, dc.ID, dc); err != nil {
		return nil, fmt.Errorf("save context %q: %w", dc.ID, err)
	}
	return dc, nil
}

// Run connects the pipeline's messenger and serves turns until the
// transport closes or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.messenger == nil {
		return ErrNoMessenger
	}
	p.log().Info("pipeline running",
		"start_label", p.startLabel,
		"fallback_label", p.fallbackLabel)
	return p.messenger.Connect(ctx, p.RunTurn)
}

// GlobalHandlerOption filters which components a global handler attaches to.
type GlobalHandlerOption func(*globalFilter)

type globalFilter struct {
	whitelist []string
	blacklist []string
}

// Whitelist restricts the handler to components with the given names.
func Whitelist(names ...string) GlobalHandlerOption {
	return func(f *globalFilter) { f.whitelist = names }
}

// Blacklist excludes components with the given names.
func Blacklist(names ...string) GlobalHandlerOption {
	return func(f *globalFilter) { f.blacklist = names }
}

func (f *globalFilter) pass(name string) bool {
	if len(f.whitelist) > 0 && !slices.Contains(f.whitelist, name) {
		return false
	}
	return !slices.Contains(f.blacklist, name)
}

// AddGlobalHandler attaches fn at the given stage to every component in the
// tree whose name passes the filter options. The BEFORE_ALL and AFTER_ALL
// stages target the root group only, so fn runs exactly once per turn.
func (p *Pipeline) AddGlobalHandler(stage Stage, fn ExtraHandlerFunc, opts ...GlobalHandlerOption) {
	var f globalFilter
	for _, opt := range opts {
		opt(&f)
	}
	switch stage {
	case StageBeforeAll:
		f.whitelist = []string{p.root.Name()}
		f.blacklist = nil
		stage = StageBefore
	case StageAfterAll:
		f.whitelist = []string{p.root.Name()}
		f.blacklist = nil
		stage = StageAfter
	}
	p.root.addExtraHandler(stage, fn, f.pass)
}

// BeforeAll registers fn to run once per turn, ahead of the whole tree.
func (p *Pipeline) BeforeAll(fn ExtraHandlerFunc) {
	p.AddGlobalHandler(StageBeforeAll, fn)
}

// AfterAll registers fn to run once per turn, after the whole tree settles.
func (p *Pipeline) AfterAll(fn ExtraHandlerFunc) {
	p.AddGlobalHandler(StageAfterAll, fn)
}
