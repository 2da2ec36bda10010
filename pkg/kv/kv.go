// Package kv is the storage layer for evaluation runs. Keys are paths of
// string segments (for example {"runs", "<id>", "instances", "00000001"})
// encoded with ':' between segments.
//
// Two backends exist: Memory for tests and throwaway runs, and Badger for
// runs that must survive the process. Use Open to pick one from a URL.
package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

var (
	// ErrNotFound is returned when a key does not exist in the store.
	ErrNotFound = errors.New("kv: not found")

	// ErrInvalidKey is returned when a key is empty or a segment contains the
	// separator.
	ErrInvalidKey = errors.New("kv: invalid key")
)

// Separator joins key segments in the encoded form.
const Separator = ':'

// Key is a hierarchical path of segments.
type Key []string

// String returns the encoded form of the key.
func (k Key) String() string {
	return strings.Join(k, string(Separator))
}

// Append returns a new key with segs appended. k is never modified.
func (k Key) Append(segs ...string) Key {
	out := make(Key, 0, len(k)+len(segs))
	out = append(out, k...)
	return append(out, segs...)
}

// Entry is a key-value pair yielded by List and accepted by BatchSet.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with path-based keys.
type Store interface {
	// Get returns ErrNotFound if key is not present.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set overwrites any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key Key) error

	// List yields entries under prefix in lexicographic order of the encoded
	// key. Prefix {"a"} matches {"a","b"} but not {"ab"}.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// BatchSet stores all entries atomically.
	BatchSet(ctx context.Context, entries []Entry) error

	Close() error
}

func encode(k Key) ([]byte, error) {
	if len(k) == 0 {
		return nil, ErrInvalidKey
	}
	for _, seg := range k {
		if strings.IndexByte(seg, Separator) >= 0 {
			return nil, fmt.Errorf("%w: segment %q contains %q", ErrInvalidKey, seg, Separator)
		}
	}
	return []byte(k.String()), nil
}

// encodePrefix returns the byte prefix matching all keys under k, including
// the trailing separator. An empty prefix matches everything.
func encodePrefix(k Key) ([]byte, error) {
	if len(k) == 0 {
		return nil, nil
	}
	b, err := encode(k)
	if err != nil {
		return nil, err
	}
	return append(b, Separator), nil
}

func decode(b []byte) Key {
	return Key(strings.Split(string(b), string(Separator)))
}

// Open opens a store from a URL: "memory://" or "badger:///path/to/dir".
func Open(url string) (Store, error) {
	switch {
	case url == "" || url == "memory://":
		return NewMemory(), nil
	case strings.HasPrefix(url, "badger://"):
		dir := strings.TrimPrefix(url, "badger://")
		if dir == "" {
			return nil, fmt.Errorf("kv: badger url %q has no directory", url)
		}
		return NewBadger(BadgerOptions{Dir: dir})
	default:
		return nil, fmt.Errorf("kv: unsupported store url: %s", url)
	}
}
