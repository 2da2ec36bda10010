package agents

import "github.com/haivivi/simulagent/pkg/sentencepiece"

// Config carries the arguments of every built-in agent. Agents read only the
// fields they need.
type Config struct {
	// SegmentK is the number of tokens the segmenter buffers before writing.
	SegmentK int `json:"segment_k,omitempty" yaml:"segment_k,omitempty" msgpack:"segment_k,omitempty"`

	// SentencePieceModel is the path of the detokenizer's sub-word model.
	SentencePieceModel string `json:"sentencepiece_model,omitempty" yaml:"sentencepiece_model,omitempty" msgpack:"sentencepiece_model,omitempty"`

	// DetokenizeOnly makes the detokenizer write on every step instead of
	// waiting for the start of the next word.
	DetokenizeOnly bool `json:"detokenize_only,omitempty" yaml:"detokenize_only,omitempty" msgpack:"detokenize_only,omitempty"`

	// Model, when set, is used instead of loading SentencePieceModel.
	Model sentencepiece.Model `json:"-" yaml:"-" msgpack:"-"`
}

// LoadModel returns c.Model, or opens SentencePieceModel.
func (c Config) LoadModel() (sentencepiece.Model, error) {
	if c.Model != nil {
		return c.Model, nil
	}
	return sentencepiece.Open(c.SentencePieceModel)
}
