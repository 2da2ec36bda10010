package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/simulagent/pkg/jsontime"
	"github.com/haivivi/simulagent/pkg/simul"
)

// ErrStalled is returned when a pipeline keeps reading after its source was
// exhausted.
var ErrStalled = errors.New("evaluator: pipeline did not finish")

// DefaultMaxIdleSteps bounds the steps fed after the source was exhausted.
const DefaultMaxIdleSteps = 16

// Report summarises a run.
type Report struct {
	RunID     string            `json:"run_id" yaml:"run_id" msgpack:"run_id"`
	Agents    []string          `json:"agents,omitempty" yaml:"agents,omitempty" msgpack:"agents,omitempty"`
	Labels    map[string]string `json:"labels,omitempty" yaml:"labels,omitempty" msgpack:"labels,omitempty"`
	Instances int               `json:"instances" yaml:"instances" msgpack:"instances"`
	AL        float64           `json:"al" yaml:"al" msgpack:"al"`
	StartedAt time.Time         `json:"started_at" yaml:"started_at" msgpack:"started_at"`
	Elapsed   jsontime.Duration `json:"elapsed" yaml:"elapsed" msgpack:"elapsed"`
}

// Evaluator runs sources through pipelines built by NewPipeline.
type Evaluator struct {
	// NewPipeline builds the pipeline under evaluation. Required.
	NewPipeline func() (*simul.Pipeline, error)

	// Store receives the report and every instance when set.
	Store *Store

	// MaxIdleSteps defaults to DefaultMaxIdleSteps.
	MaxIdleSteps int

	// Agents and Labels are copied into the report.
	Agents []string
	Labels map[string]string

	// OnInstance is called after each instance is evaluated.
	OnInstance func(*Instance)
}

// Run evaluates sources in order. One pipeline is built and reset between
// instances.
func (e *Evaluator) Run(ctx context.Context, sources []Source) (*Report, error) {
	if e.NewPipeline == nil {
		return nil, errors.New("evaluator: NewPipeline is required")
	}
	p, err := e.NewPipeline()
	if err != nil {
		return nil, fmt.Errorf("evaluator: build pipeline: %w", err)
	}

	rep := &Report{
		RunID:     uuid.NewString(),
		Agents:    e.Agents,
		Labels:    e.Labels,
		StartedAt: time.Now(),
	}
	slog.Info("evaluation started", "run", rep.RunID, "instances", len(sources))

	var (
		total float64
		last  []*Instance
	)
	for i, src := range sources {
		in, err := e.Evaluate(ctx, p, i, src)
		if err != nil {
			return nil, err
		}
		// The final instance is written with the report.
		if e.Store != nil && i < len(sources)-1 {
			if err := e.Store.SaveInstance(ctx, rep.RunID, in); err != nil {
				return nil, err
			}
		}
		if i == len(sources)-1 {
			last = append(last, in)
		}
		if e.OnInstance != nil {
			e.OnInstance(in)
		}
		total += in.AL
		rep.Instances++
	}
	if rep.Instances > 0 {
		rep.AL = total / float64(rep.Instances)
	}
	rep.Elapsed = jsontime.Duration(time.Since(rep.StartedAt))

	if e.Store != nil {
		if err := e.Store.SaveRun(ctx, rep, last...); err != nil {
			return nil, err
		}
	}
	slog.Info("evaluation finished", "run", rep.RunID, "instances", rep.Instances, "al", rep.AL, "elapsed", rep.Elapsed)
	return rep, nil
}

// Evaluate streams one source through p, which is reset first.
func (e *Evaluator) Evaluate(ctx context.Context, p *simul.Pipeline, index int, src Source) (*Instance, error) {
	maxIdle := e.MaxIdleSteps
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdleSteps
	}
	tokens := src.Tokens()
	in := &Instance{
		ID:        src.ID,
		Index:     index,
		Source:    tokens,
		Reference: src.Reference,
		StartedAt: time.Now(),
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	p.Reset()
	read, idle := 0, 0
	for !p.Finished() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var seg simul.Segment
		if read < len(tokens) {
			seg = simul.Segment{Index: read, Content: tokens[read], Finished: read == len(tokens)-1}
			read++
		} else {
			if idle >= maxIdle {
				return nil, fmt.Errorf("%w: instance %d after %d idle steps", ErrStalled, index, idle)
			}
			idle++
			seg = simul.Segment{Index: read, Finished: true}
		}
		out, err := p.PushPop(seg)
		if err != nil {
			return nil, fmt.Errorf("evaluator: instance %d: %w", index, err)
		}
		in.receive(out, read)
	}

	in.Finished = true
	in.Elapsed = jsontime.Duration(time.Since(in.StartedAt))
	in.AL = AverageLagging(in.Delays, len(tokens), in.targetLength())
	slog.Debug("instance evaluated", "index", index, "prediction", in.PredictionText(), "al", in.AL)
	return in, nil
}
