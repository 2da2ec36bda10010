package evaluator

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/haivivi/simulagent/pkg/jsontime"
	"github.com/haivivi/simulagent/pkg/simul"
)

// Source is one input of an evaluation.
type Source struct {
	// ID is optional; a UUID is assigned when empty.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Text holds whitespace-separated source tokens.
	Text string `json:"source" yaml:"source"`

	// Reference is the expected output, if known. Its word count is used as
	// the target length for AL.
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// Tokens splits Text on whitespace.
func (s Source) Tokens() []string {
	return strings.Fields(s.Text)
}

// Manifest is the YAML/JSON form of a source file.
type Manifest struct {
	Instances []Source `json:"instances" yaml:"instances"`
}

// ReadSources reads one source per non-blank line.
func ReadSources(r io.Reader) ([]Source, error) {
	var out []Source
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		out = append(out, Source{Text: line})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("evaluator: read sources: %w", err)
	}
	return out, nil
}

// Instance is the record of one evaluated source.
type Instance struct {
	ID        string   `json:"id" yaml:"id" msgpack:"id"`
	Index     int      `json:"index" yaml:"index" msgpack:"index"`
	Source    []string `json:"source" yaml:"source" msgpack:"source"`
	Reference string   `json:"reference,omitempty" yaml:"reference,omitempty" msgpack:"reference,omitempty"`

	// Prediction holds the emitted words; Delays[i] is the number of source
	// tokens read when Prediction[i] was emitted.
	Prediction []string `json:"prediction" yaml:"prediction" msgpack:"prediction"`
	Delays     []int    `json:"delays" yaml:"delays" msgpack:"delays"`

	// Outputs are the non-empty segments in arrival order.
	Outputs []simul.Segment `json:"outputs,omitempty" yaml:"outputs,omitempty" msgpack:"outputs,omitempty"`

	Finished  bool              `json:"finished" yaml:"finished" msgpack:"finished"`
	StartedAt time.Time         `json:"started_at" yaml:"started_at" msgpack:"started_at"`
	Elapsed   jsontime.Duration `json:"elapsed" yaml:"elapsed" msgpack:"elapsed"`
	AL        float64           `json:"al" yaml:"al" msgpack:"al"`
}

// PredictionText joins the prediction words with single spaces.
func (in *Instance) PredictionText() string {
	return strings.Join(in.Prediction, " ")
}

// receive records an output segment emitted after read source tokens.
// A segment flagged WordBoundary continues the previous word.
func (in *Instance) receive(seg simul.Segment, read int) {
	if seg.IsEmpty() {
		return
	}
	in.Outputs = append(in.Outputs, seg)
	for i, w := range strings.Fields(seg.Content) {
		if i == 0 && seg.WordBoundary && len(in.Prediction) > 0 {
			in.Prediction[len(in.Prediction)-1] += w
			continue
		}
		in.Prediction = append(in.Prediction, w)
		in.Delays = append(in.Delays, read)
	}
}

// targetLength is the reference word count, or the prediction length when
// there is no reference.
func (in *Instance) targetLength() int {
	if in.Reference != "" {
		return len(strings.Fields(in.Reference))
	}
	return len(in.Delays)
}
