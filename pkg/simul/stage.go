package simul

import (
	"fmt"
	"log/slog"
)

// Stage drives one Agent and owns its States.
type Stage struct {
	name    string
	agent   Agent
	states  States
	written int
}

// NewStage creates a Stage for agent. name is used in logs and errors.
func NewStage(name string, agent Agent) *Stage {
	return &Stage{name: name, agent: agent}
}

// Name returns the stage name.
func (s *Stage) Name() string {
	return s.name
}

// Agent returns the wrapped agent.
func (s *Stage) Agent() Agent {
	return s.agent
}

// States returns the live states of the stage.
func (s *Stage) States() *States {
	return &s.states
}

// Reset prepares the stage for a new stream.
func (s *Stage) Reset() {
	s.states.Reset()
	s.written = 0
}

// Push records an input segment. Segments arriving after the source finished
// are ignored.
func (s *Stage) Push(seg Segment) {
	if s.states.SourceFinished {
		return
	}
	s.states.UpdateSource(seg)
}

// Pop evaluates the policy once and converts the action into a Segment.
//
// A ReadAction yields an empty, unfinished segment. Once the agent wrote a
// finished segment, Pop keeps returning an empty finished segment without
// calling the policy again.
func (s *Stage) Pop() (Segment, error) {
	if s.states.TargetFinished {
		return Segment{Index: s.written, Finished: true}, nil
	}
	action, err := s.agent.Policy(&s.states)
	if err != nil {
		return Segment{}, err
	}
	switch a := action.(type) {
	case *ReadAction:
		slog.Debug("policy read", "stage", s.name, "source", len(s.states.Source))
		return Segment{Index: s.written}, nil
	case *WriteAction:
		seg := Segment{
			Index:        s.written,
			Content:      a.Content,
			Finished:     a.Finished,
			WordBoundary: a.WordBoundary,
		}
		s.states.UpdateTarget(seg)
		if !seg.IsEmpty() {
			s.written++
		}
		slog.Debug("policy write", "stage", s.name, "content", a.Content, "finished", a.Finished, "word_boundary", a.WordBoundary)
		return seg, nil
	case nil:
		return Segment{}, ErrNilAction
	default:
		return Segment{}, fmt.Errorf("simul: unsupported action type %T", action)
	}
}

// PushPop pushes seg and pops the next output.
func (s *Stage) PushPop(seg Segment) (Segment, error) {
	s.Push(seg)
	return s.Pop()
}
