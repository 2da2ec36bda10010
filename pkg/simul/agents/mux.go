package agents

import (
	"fmt"
	"log/slog"

	"github.com/haivivi/simulagent/pkg/simul"
	"github.com/haivivi/simulagent/pkg/trie"
)

// Patterns of the built-in agents.
const (
	SegmenterPattern   = "text/segmenter"
	DetokenizerPattern = "text/spm-detokenizer"
)

// DefaultPipeline is the segmenter followed by the detokenizer.
var DefaultPipeline = []string{SegmenterPattern, DetokenizerPattern}

// Factory builds an agent from configuration.
type Factory func(cfg Config) (simul.Agent, error)

// DefaultMux holds the built-in agents.
var DefaultMux = newDefaultMux()

func newDefaultMux() *Mux {
	m := NewMux()
	must(m.Handle(SegmenterPattern, newSegmenter))
	must(m.Handle(DetokenizerPattern, newDetokenizer))
	return m
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Handle registers a factory in the default mux.
func Handle(pattern string, f Factory) error {
	return DefaultMux.Handle(pattern, f)
}

// New builds the agent registered for pattern in the default mux.
func New(pattern string, cfg Config) (simul.Agent, error) {
	return DefaultMux.New(pattern, cfg)
}

// Mux routes agent patterns to factories using a trie, so patterns may use
// the "+" and "#" wildcards.
type Mux struct {
	mux *trie.Trie[Factory]
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{mux: trie.New[Factory]()}
}

// Handle registers f for pattern. Registering a pattern twice is an error.
func (m *Mux) Handle(pattern string, f Factory) error {
	return m.mux.Set(pattern, func(ptr *Factory, existed bool) error {
		if existed {
			return fmt.Errorf("agents: agent already registered for %s", pattern)
		}
		*ptr = f
		return nil
	})
}

// Get returns the factory registered for pattern.
func (m *Mux) Get(pattern string) (Factory, error) {
	f, ok := m.mux.GetValue(pattern)
	if !ok || f == nil {
		return nil, fmt.Errorf("agents: agent not found for %s", pattern)
	}
	return f, nil
}

// New builds the agent registered for pattern.
func (m *Mux) New(pattern string, cfg Config) (simul.Agent, error) {
	f, err := m.Get(pattern)
	if err != nil {
		return nil, err
	}
	slog.Debug("build agent", "pattern", pattern)
	return f(cfg)
}

// Patterns lists the registered patterns in lexicographic order.
func (m *Mux) Patterns() []string {
	var out []string
	m.mux.Walk(func(pattern string, _ Factory) {
		out = append(out, pattern)
	})
	return out
}

// NewPipeline builds one stage per pattern, in order, all from cfg.
func NewPipeline(m *Mux, patterns []string, cfg Config) (*simul.Pipeline, error) {
	stages := make([]*simul.Stage, 0, len(patterns))
	for _, p := range patterns {
		a, err := m.New(p, cfg)
		if err != nil {
			return nil, err
		}
		stages = append(stages, simul.NewStage(p, a))
	}
	return simul.NewPipeline(stages...)
}

// PipelineFunc returns a function building a fresh pipeline on every call.
// The sub-word model is loaded once up front and shared by every pipeline.
func PipelineFunc(m *Mux, patterns []string, cfg Config) (func() (*simul.Pipeline, error), error) {
	if cfg.Model == nil && cfg.SentencePieceModel != "" {
		model, err := cfg.LoadModel()
		if err != nil {
			return nil, fmt.Errorf("agents: %w", err)
		}
		cfg.Model = model
	}
	// Build once so configuration errors surface before the first stream.
	if _, err := NewPipeline(m, patterns, cfg); err != nil {
		return nil, err
	}
	return func() (*simul.Pipeline, error) {
		return NewPipeline(m, patterns, cfg)
	}, nil
}
