package sentencepiece

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

var _ Model = (*Vocab)(nil)

// Vocab is a Model built from a piece list, as found in the ".vocab" file
// that spm_train writes next to the model. Encoding is greedy longest match
// per word; runes not covered by any piece become single-rune pieces.
type Vocab struct {
	pieces map[string]struct{}
	maxLen int // longest piece in bytes
}

// NewVocab builds a Vocab from pieces.
func NewVocab(pieces ...string) *Vocab {
	v := &Vocab{pieces: make(map[string]struct{}, len(pieces))}
	for _, p := range pieces {
		v.add(p)
	}
	return v
}

func (v *Vocab) add(p string) {
	if p == "" {
		return
	}
	v.pieces[p] = struct{}{}
	v.maxLen = max(v.maxLen, len(p))
}

// LoadVocab reads one piece per line. Anything after the first tab (the
// score column) is ignored, as are blank lines.
func LoadVocab(r io.Reader) (*Vocab, error) {
	v := NewVocab()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '\t'); i >= 0 {
			text = text[:i]
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		v.add(text)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab line %d: %w", line, err)
	}
	if len(v.pieces) == 0 {
		return nil, fmt.Errorf("vocab is empty")
	}
	return v, nil
}

// LoadVocabFile is LoadVocab on a file.
func LoadVocabFile(path string) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadVocab(f)
}

// Len returns the number of pieces.
func (v *Vocab) Len() int {
	return len(v.pieces)
}

// Encode splits text on whitespace, prefixes each word with Marker and
// greedily matches the longest known piece at every position.
func (v *Vocab) Encode(text string) ([]string, error) {
	var out []string
	for _, word := range strings.Fields(text) {
		out = v.encodeWord(out, Marker+word)
	}
	return out, nil
}

func (v *Vocab) encodeWord(out []string, word string) []string {
	for len(word) > 0 {
		n := min(v.maxLen, len(word))
		for ; n > 0; n-- {
			if n < len(word) && !utf8.RuneStart(word[n]) {
				continue
			}
			if _, ok := v.pieces[word[:n]]; ok {
				break
			}
		}
		if n == 0 {
			_, n = utf8.DecodeRuneInString(word)
		}
		out = append(out, word[:n])
		word = word[n:]
	}
	return out
}

// Decode joins pieces into plain text.
func (v *Vocab) Decode(pieces []string) string {
	return DecodePieces(pieces)
}
