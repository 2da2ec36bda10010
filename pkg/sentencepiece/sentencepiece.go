// Package sentencepiece provides the sub-word models used by the
// detokenizer agent.
//
// A Model turns text into pieces and pieces back into text. Pieces that start
// a new word carry the Marker prefix ("▁"); pieces without it continue the
// previous word. Decoding follows the fairseq SentencePiece BPE rule: drop the
// spaces between pieces, turn every marker into a space, trim.
package sentencepiece

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Marker is the word-start prefix on SentencePiece pieces (U+2581).
const Marker = "▁"

// Model encodes text into sub-word pieces and decodes pieces into text.
type Model interface {
	// Encode splits text into pieces.
	Encode(text string) ([]string, error)

	// Decode joins pieces into plain text.
	Decode(pieces []string) string
}

// Decode converts a space-separated piece string into plain text.
//
//	Decode("▁hel lo ▁world") == "hello world"
func Decode(text string) string {
	text = strings.ReplaceAll(text, " ", "")
	text = strings.ReplaceAll(text, Marker, " ")
	return strings.TrimSpace(text)
}

// DecodePieces is Decode over a piece slice.
func DecodePieces(pieces []string) string {
	return Decode(strings.Join(pieces, " "))
}

// Open loads a model from path. Files ending in ".vocab" or ".txt" are read as
// plain-text vocabularies; anything else is loaded as a SentencePiece model
// protobuf.
func Open(path string) (Model, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vocab", ".txt":
		v, err := LoadVocabFile(path)
		if err != nil {
			return nil, fmt.Errorf("sentencepiece: open %s: %w", path, err)
		}
		return v, nil
	default:
		p, err := LoadProcessor(path)
		if err != nil {
			return nil, fmt.Errorf("sentencepiece: open %s: %w", path, err)
		}
		return p, nil
	}
}
