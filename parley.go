package parley

import (
	"github.com/ketram/parley/pkg/adapters/console"
	"github.com/ketram/parley/pkg/pipeline"
	"github.com/ketram/parley/pkg/script"
)

// Option configures the pipeline; all pipeline.With* options apply.
type Option = pipeline.PipelineOption

// Re-exported pipeline options, so simple embedders only import parley.
var (
	WithPreServices   = pipeline.WithPreServices
	WithPostServices  = pipeline.WithPostServices
	WithContextStore  = pipeline.WithContextStore
	WithMessenger     = pipeline.WithMessenger
	WithLogger        = pipeline.WithLogger
	WithFallbackLabel = pipeline.WithFallbackLabel
)

// New builds a pipeline with library defaults: an in-memory context store
// and an interactive console messenger. Both can be replaced with options.
func New(actor pipeline.Actor, startLabel string, opts ...Option) (*pipeline.Pipeline, error) {
	base := []Option{
		pipeline.WithMessenger(console.New()),
	}
	return pipeline.New(actor, startLabel, append(base, opts...)...)
}

// FromScriptFile loads a YAML dialog script and builds a pipeline around a
// scripted actor.
func FromScriptFile(path, startLabel, fallbackLabel string, opts ...Option) (*pipeline.Pipeline, error) {
	s, err := script.Load(path)
	if err != nil {
		return nil, err
	}
	if fallbackLabel != "" {
		opts = append([]Option{pipeline.WithFallbackLabel(fallbackLabel)}, opts...)
	}
	return New(script.NewActor(s), startLabel, opts...)
}
