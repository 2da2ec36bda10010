// Package trie provides a generic trie keyed by slash-separated patterns.
// It backs the agent registries, where agents are registered under patterns
// such as "text/segmenter" or "text/spm-detokenizer".
//
// Two wildcards are supported when registering:
//   - "+" matches exactly one segment ("text/+" matches "text/segmenter")
//   - "#" matches all remaining segments and must be last ("text/#")
//
// Exact segments take precedence over "+", which takes precedence over "#".
package trie

import (
	"errors"
	"sort"
	"strings"
)

// ErrInvalidPattern is returned when "#" is not the last segment of a pattern.
var ErrInvalidPattern = errors.New("trie: invalid pattern, '#' must be the last segment")

// Trie stores values of type T under slash-separated patterns.
// A Trie is not safe for concurrent mutation.
type Trie[T any] struct {
	children map[string]*Trie[T]
	matchAny *Trie[T] // "+"
	matchAll *Trie[T] // "#"
	set      bool
	value    T
}

// New creates an empty Trie.
func New[T any]() *Trie[T] {
	return &Trie[T]{}
}

// Set stores a value under pattern. fn receives a pointer to the slot and
// whether a value was already present; returning an error aborts the write.
// Leading and trailing slashes are ignored.
func (t *Trie[T]) Set(pattern string, fn func(ptr *T, existed bool) error) error {
	segs := split(pattern)
	node := t
	for i, seg := range segs {
		switch seg {
		case "#":
			if i != len(segs)-1 {
				return ErrInvalidPattern
			}
			if node.matchAll == nil {
				node.matchAll = &Trie[T]{}
			}
			node = node.matchAll
		case "+":
			if node.matchAny == nil {
				node.matchAny = &Trie[T]{}
			}
			node = node.matchAny
		default:
			if node.children == nil {
				node.children = make(map[string]*Trie[T])
			}
			ch, ok := node.children[seg]
			if !ok {
				ch = &Trie[T]{}
				node.children[seg] = ch
			}
			node = ch
		}
	}
	if err := fn(&node.value, node.set); err != nil {
		return err
	}
	node.set = true
	return nil
}

// SetValue stores value under pattern, replacing any previous value.
func (t *Trie[T]) SetValue(pattern string, value T) error {
	return t.Set(pattern, func(ptr *T, _ bool) error {
		*ptr = value
		return nil
	})
}

// Get returns a pointer to the value that best matches path.
func (t *Trie[T]) Get(path string) (*T, bool) {
	_, v, ok := t.Match(path)
	return v, ok
}

// GetValue is like Get but returns the value itself.
func (t *Trie[T]) GetValue(path string) (T, bool) {
	if ptr, ok := t.Get(path); ok {
		return *ptr, true
	}
	var zero T
	return zero, false
}

// Match returns the registered pattern that matched path along with its value.
func (t *Trie[T]) Match(path string) (pattern string, value *T, ok bool) {
	matched, node := t.match(nil, split(path))
	if node == nil {
		return "", nil, false
	}
	return strings.Join(matched, "/"), &node.value, true
}

func (t *Trie[T]) match(matched, segs []string) ([]string, *Trie[T]) {
	if len(segs) == 0 {
		if t.set {
			return matched, t
		}
		if t.matchAll != nil && t.matchAll.set {
			return append(matched, "#"), t.matchAll
		}
		return nil, nil
	}
	if ch, ok := t.children[segs[0]]; ok {
		if m, n := ch.match(append(matched, segs[0]), segs[1:]); n != nil {
			return m, n
		}
	}
	if t.matchAny != nil {
		if m, n := t.matchAny.match(append(matched, "+"), segs[1:]); n != nil {
			return m, n
		}
	}
	if t.matchAll != nil && t.matchAll.set {
		return append(matched, "#"), t.matchAll
	}
	return nil, nil
}

// Walk calls f for every stored value in lexicographic pattern order.
func (t *Trie[T]) Walk(f func(pattern string, value T)) {
	type entry struct {
		pattern string
		value   T
	}
	var entries []entry
	t.collect(nil, func(path []string, v T) {
		entries = append(entries, entry{strings.Join(path, "/"), v})
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].pattern < entries[j].pattern })
	for _, e := range entries {
		f(e.pattern, e.value)
	}
}

func (t *Trie[T]) collect(path []string, f func([]string, T)) {
	if t.set {
		f(path, t.value)
	}
	for seg, ch := range t.children {
		ch.collect(append(path[:len(path):len(path)], seg), f)
	}
	if t.matchAny != nil {
		t.matchAny.collect(append(path[:len(path):len(path)], "+"), f)
	}
	if t.matchAll != nil {
		t.matchAll.collect(append(path[:len(path):len(path)], "#"), f)
	}
}

// Len returns the number of stored values.
func (t *Trie[T]) Len() int {
	n := 0
	t.collect(nil, func([]string, T) { n++ })
	return n
}

func split(pattern string) []string {
	pattern = strings.Trim(pattern, "/")
	if pattern == "" {
		return nil
	}
	return strings.Split(pattern, "/")
}
