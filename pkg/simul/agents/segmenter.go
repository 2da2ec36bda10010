package agents

import (
	"fmt"
	"strings"

	"github.com/haivivi/simulagent/pkg/simul"
)

var _ simul.Agent = (*Segmenter)(nil)

// Segmenter buffers source tokens until K of them arrived or the source
// finished, then writes them joined by single spaces.
type Segmenter struct {
	k int
}

// NewSegmenter creates a Segmenter. k must be at least 1.
func NewSegmenter(k int) (*Segmenter, error) {
	if k < 1 {
		return nil, fmt.Errorf("agents: segment_k must be >= 1, got %d", k)
	}
	return &Segmenter{k: k}, nil
}

// K returns the segment size.
func (s *Segmenter) K() int {
	return s.k
}

// Policy implements simul.Agent.
func (s *Segmenter) Policy(states *simul.States) (simul.Action, error) {
	if len(states.Source) == s.k || states.SourceFinished {
		out := strings.Join(states.Source, " ")
		states.Source = nil
		return simul.Write(out, states.SourceFinished), nil
	}
	return simul.Read(), nil
}

func newSegmenter(cfg Config) (simul.Agent, error) {
	return NewSegmenter(cfg.SegmentK)
}
