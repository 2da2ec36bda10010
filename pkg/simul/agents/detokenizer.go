package agents

import (
	"errors"
	"fmt"
	"strings"

	"github.com/haivivi/simulagent/pkg/sentencepiece"
	"github.com/haivivi/simulagent/pkg/simul"
)

var _ simul.Agent = (*Detokenizer)(nil)

// Detokenizer decodes SentencePiece pieces into text.
//
// By default it writes only the words that are complete: the last decoded
// word may still grow with the next piece, so it is re-encoded and kept in the
// buffer until a later word or the end of the source confirms it. With
// DetokenizeOnly it writes everything it has on every step and flags output
// that starts mid-word.
type Detokenizer struct {
	model          sentencepiece.Model
	detokenizeOnly bool
}

// NewDetokenizer creates a Detokenizer over model.
func NewDetokenizer(model sentencepiece.Model, detokenizeOnly bool) (*Detokenizer, error) {
	if model == nil {
		return nil, errors.New("agents: detokenizer requires a sentencepiece model")
	}
	return &Detokenizer{model: model, detokenizeOnly: detokenizeOnly}, nil
}

// DetokenizeOnly reports the mode of the detokenizer.
func (d *Detokenizer) DetokenizeOnly() bool {
	return d.detokenizeOnly
}

// Policy implements simul.Agent.
func (d *Detokenizer) Policy(states *simul.States) (simul.Action, error) {
	decoded := d.model.Decode(states.Source)

	if d.detokenizeOnly && len(states.Source) > 0 {
		first := states.Source[0]
		states.Source = nil
		if decoded == "" && !states.SourceFinished {
			return simul.Read(), nil
		}
		return &simul.WriteAction{
			Content:      decoded,
			Finished:     states.SourceFinished,
			WordBoundary: !strings.HasPrefix(first, sentencepiece.Marker),
		}, nil
	}

	if states.SourceFinished {
		return simul.Write(decoded, true), nil
	}
	words := strings.Fields(decoded)
	if len(words) > 1 {
		last := words[len(words)-1]
		pieces, err := d.model.Encode(last)
		if err != nil {
			return nil, fmt.Errorf("agents: re-encode %q: %w", last, err)
		}
		states.Source = pieces
		return simul.Write(strings.Join(words[:len(words)-1], " "), false), nil
	}
	return simul.Read(), nil
}

func newDetokenizer(cfg Config) (simul.Agent, error) {
	if cfg.Model == nil && cfg.SentencePieceModel == "" {
		return nil, errors.New("agents: sentencepiece_model is required")
	}
	model, err := cfg.LoadModel()
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	return NewDetokenizer(model, cfg.DetokenizeOnly)
}
