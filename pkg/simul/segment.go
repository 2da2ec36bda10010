package simul

// Segment is the unit of data flowing between stages.
type Segment struct {
	// Index is the position of the segment in its stream.
	Index int `json:"index" yaml:"index" msgpack:"index"`

	// Content is the text payload. Empty means no output for this step.
	Content string `json:"content" yaml:"content" msgpack:"content"`

	// Finished marks the last segment of a stream.
	Finished bool `json:"finished" yaml:"finished" msgpack:"finished"`

	// WordBoundary is set by agents that emit text starting in the middle of
	// a word, so consumers attach it to the previous output without a space.
	WordBoundary bool `json:"word_boundary,omitempty" yaml:"word_boundary,omitempty" msgpack:"word_boundary,omitempty"`
}

// IsEmpty reports whether the segment carries no content.
func (s Segment) IsEmpty() bool {
	return s.Content == ""
}

// States is the mutable per-agent view of a stream.
type States struct {
	// Source holds the not yet consumed input, one element per pushed segment.
	// Policies rewrite it as they consume input.
	Source []string

	// SourceFinished is set once the upstream stream ended.
	SourceFinished bool

	// Target holds everything this agent emitted.
	Target []string

	// TargetFinished is set once the agent emitted its final segment.
	TargetFinished bool
}

// Reset clears the states for a new stream.
func (s *States) Reset() {
	*s = States{}
}

// UpdateSource records a pushed segment.
func (s *States) UpdateSource(seg Segment) {
	s.SourceFinished = seg.Finished
	if !seg.IsEmpty() {
		s.Source = append(s.Source, seg.Content)
	}
}

// UpdateTarget records an emitted segment.
func (s *States) UpdateTarget(seg Segment) {
	s.TargetFinished = seg.Finished
	if !seg.IsEmpty() {
		s.Target = append(s.Target, seg.Content)
	}
}

// Clone returns a deep copy.
func (s *States) Clone() States {
	return States{
		Source:         append([]string(nil), s.Source...),
		SourceFinished: s.SourceFinished,
		Target:         append([]string(nil), s.Target...),
		TargetFinished: s.TargetFinished,
	}
}
