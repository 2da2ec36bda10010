package sentencepiece

import (
	spm "github.com/eliben/go-sentencepiece"
)

var _ Model = (*Processor)(nil)

// Processor is a Model backed by a trained SentencePiece model file.
type Processor struct {
	proc *spm.Processor
}

// LoadProcessor loads a SentencePiece ".model" protobuf.
func LoadProcessor(path string) (*Processor, error) {
	proc, err := spm.NewProcessorFromPath(path)
	if err != nil {
		return nil, err
	}
	return &Processor{proc: proc}, nil
}

// Encode returns the piece strings for text.
func (p *Processor) Encode(text string) ([]string, error) {
	tokens := p.proc.Encode(text)
	pieces := make([]string, len(tokens))
	for i, tok := range tokens {
		pieces[i] = tok.Text
	}
	return pieces, nil
}

// Decode joins pieces into plain text.
func (p *Processor) Decode(pieces []string) string {
	return DecodePieces(pieces)
}
