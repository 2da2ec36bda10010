package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/simulagent/pkg/kv"
)

// Key layout:
//
//	runs:{run_id}:meta                → msgpack Report
//	runs:{run_id}:instances:{%08d}    → msgpack Instance
//
// The zero-padded index keeps lexicographic order equal to instance order.

// ErrRunNotFound is returned for unknown run IDs.
var ErrRunNotFound = errors.New("evaluator: run not found")

var runsPrefix = kv.Key{"runs"}

// Store persists reports and instances in a kv.Store.
type Store struct {
	kv kv.Store
}

// NewStore wraps s.
func NewStore(s kv.Store) *Store {
	return &Store{kv: s}
}

func metaKey(runID string) kv.Key {
	return runsPrefix.Append(runID, "meta")
}

func instancesPrefix(runID string) kv.Key {
	return runsPrefix.Append(runID, "instances")
}

func instanceKey(runID string, index int) kv.Key {
	return instancesPrefix(runID).Append(fmt.Sprintf("%08d", index))
}

// SaveRun stores the report of a run together with ins in one batch, so
// the header never exists without the instances passed along with it.
func (s *Store) SaveRun(ctx context.Context, rep *Report, ins ...*Instance) error {
	data, err := msgpack.Marshal(rep)
	if err != nil {
		return fmt.Errorf("evaluator: encode run %s: %w", rep.RunID, err)
	}
	entries := make([]kv.Entry, 0, len(ins)+1)
	for _, in := range ins {
		b, err := msgpack.Marshal(in)
		if err != nil {
			return fmt.Errorf("evaluator: encode instance %d: %w", in.Index, err)
		}
		entries = append(entries, kv.Entry{Key: instanceKey(rep.RunID, in.Index), Value: b})
	}
	entries = append(entries, kv.Entry{Key: metaKey(rep.RunID), Value: data})
	return s.kv.BatchSet(ctx, entries)
}

// SaveInstance stores one instance of a run.
func (s *Store) SaveInstance(ctx context.Context, runID string, in *Instance) error {
	data, err := msgpack.Marshal(in)
	if err != nil {
		return fmt.Errorf("evaluator: encode instance %d: %w", in.Index, err)
	}
	return s.kv.Set(ctx, instanceKey(runID, in.Index), data)
}

// Run returns the report of runID.
func (s *Store) Run(ctx context.Context, runID string) (*Report, error) {
	data, err := s.kv.Get(ctx, metaKey(runID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	var rep Report
	if err := msgpack.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("evaluator: decode run %s: %w", runID, err)
	}
	return &rep, nil
}

// Runs returns every stored report, oldest first.
func (s *Store) Runs(ctx context.Context) ([]*Report, error) {
	var out []*Report
	for e, err := range s.kv.List(ctx, runsPrefix) {
		if err != nil {
			return nil, err
		}
		if len(e.Key) != 3 || e.Key[2] != "meta" {
			continue
		}
		var rep Report
		if err := msgpack.Unmarshal(e.Value, &rep); err != nil {
			slog.Warn("skip undecodable run", "key", e.Key.String(), "error", err)
			continue
		}
		out = append(out, &rep)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// Instances returns the instances of runID in index order.
func (s *Store) Instances(ctx context.Context, runID string) ([]*Instance, error) {
	var out []*Instance
	for e, err := range s.kv.List(ctx, instancesPrefix(runID)) {
		if err != nil {
			return nil, err
		}
		var in Instance
		if err := msgpack.Unmarshal(e.Value, &in); err != nil {
			return nil, fmt.Errorf("evaluator: decode %s: %w", e.Key, err)
		}
		out = append(out, &in)
	}
	return out, nil
}

// DeleteRun removes the report and every instance of runID. It returns the
// number of removed keys, or ErrRunNotFound when nothing was stored.
func (s *Store) DeleteRun(ctx context.Context, runID string) (int, error) {
	var keys []kv.Key
	for e, err := range s.kv.List(ctx, runsPrefix.Append(runID)) {
		if err != nil {
			return 0, err
		}
		keys = append(keys, e.Key)
	}
	if len(keys) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	for _, k := range keys {
		if err := s.kv.Delete(ctx, k); err != nil {
			return 0, fmt.Errorf("evaluator: delete %s: %w", k, err)
		}
	}
	return len(keys), nil
}
