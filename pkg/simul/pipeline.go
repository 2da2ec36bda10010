package simul

// Pipeline chains stages: each stage's popped segment is pushed into the
// next. Every stage is stepped on every call, so downstream stages see the
// upstream finished flag as soon as it is emitted.
type Pipeline struct {
	stages []*Stage
}

// NewPipeline creates a Pipeline. At least one stage is required.
func NewPipeline(stages ...*Stage) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, ErrEmptyPipeline
	}
	return &Pipeline{stages: stages}, nil
}

// Stages returns the stages in order.
func (p *Pipeline) Stages() []*Stage {
	return p.stages
}

// PushPop feeds seg through every stage and returns the last stage's output.
// Errors are wrapped in a *StageError.
func (p *Pipeline) PushPop(seg Segment) (Segment, error) {
	for i, st := range p.stages {
		out, err := st.PushPop(seg)
		if err != nil {
			return Segment{}, &StageError{Index: i, Name: st.Name(), Err: err}
		}
		seg = out
	}
	return seg, nil
}

// Finished reports whether the last stage emitted its final segment.
func (p *Pipeline) Finished() bool {
	return p.stages[len(p.stages)-1].States().TargetFinished
}

// Reset prepares every stage for a new stream.
func (p *Pipeline) Reset() {
	for _, st := range p.stages {
		st.Reset()
	}
}

// Snapshot returns a copy of every stage's states, in order.
func (p *Pipeline) Snapshot() []States {
	out := make([]States, len(p.stages))
	for i, st := range p.stages {
		out[i] = st.States().Clone()
	}
	return out
}
