package kv_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/haivivi/simulagent/pkg/kv"
)

// backends returns every Store implementation so each test runs against all.
func backends(t *testing.T) map[string]kv.Store {
	t.Helper()
	mem := kv.NewMemory()
	bdg, err := kv.NewBadger(kv.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() {
		mem.Close()
		bdg.Close()
	})
	return map[string]kv.Store{"memory": mem, "badger": bdg}
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			key := kv.Key{"runs", "r1", "meta"}

			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := s.Set(ctx, key, []byte("hello")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := s.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != "hello" {
				t.Fatalf("Get = %q, want %q", got, "hello")
			}
			if err := s.Set(ctx, key, []byte("world")); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, _ = s.Get(ctx, key)
			if string(got) != "world" {
				t.Fatalf("Get after overwrite = %q, want %q", got, "world")
			}
			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if err := s.Delete(ctx, kv.Key{"no", "such", "key"}); err != nil {
				t.Fatalf("Delete non-existent: %v", err)
			}
		})
	}
}

func TestListPrefix(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			entries := []kv.Entry{
				{Key: kv.Key{"runs", "r1", "instances", "00000001"}, Value: []byte("b")},
				{Key: kv.Key{"runs", "r1", "instances", "00000000"}, Value: []byte("a")},
				{Key: kv.Key{"runs", "r1", "meta"}, Value: []byte("m")},
				{Key: kv.Key{"runs", "r10", "meta"}, Value: []byte("x")},
			}
			if err := s.BatchSet(ctx, entries); err != nil {
				t.Fatalf("BatchSet: %v", err)
			}

			var got []string
			for e, err := range s.List(ctx, kv.Key{"runs", "r1", "instances"}) {
				if err != nil {
					t.Fatalf("List: %v", err)
				}
				got = append(got, e.Key.String()+"="+string(e.Value))
			}
			want := []string{
				"runs:r1:instances:00000000=a",
				"runs:r1:instances:00000001=b",
			}
			if !slices.Equal(got, want) {
				t.Fatalf("List = %v, want %v", got, want)
			}

			// {"runs","r1"} must not match "runs:r10:*".
			got = nil
			for e, err := range s.List(ctx, kv.Key{"runs", "r1"}) {
				if err != nil {
					t.Fatalf("List: %v", err)
				}
				got = append(got, e.Key.String())
			}
			if len(got) != 3 {
				t.Fatalf("List runs:r1 = %v, want 3 entries", got)
			}

			n := 0
			for _, err := range s.List(ctx, nil) {
				if err != nil {
					t.Fatalf("List: %v", err)
				}
				n++
			}
			if n != 4 {
				t.Fatalf("List all = %d entries, want 4", n)
			}
		})
	}
}

func TestInvalidKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, kv.Key{"bad:seg"}, []byte("v")); !errors.Is(err, kv.ErrInvalidKey) {
				t.Errorf("Set(bad:seg) = %v, want ErrInvalidKey", err)
			}
			if _, err := s.Get(ctx, nil); !errors.Is(err, kv.ErrInvalidKey) {
				t.Errorf("Get(nil) = %v, want ErrInvalidKey", err)
			}
		})
	}
}

func TestMemoryValueIsolation(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemory()
	key := kv.Key{"iso"}
	original := []byte("original")
	if err := s.Set(ctx, key, original); err != nil {
		t.Fatalf("Set: %v", err)
	}
	original[0] = 'X'
	got, _ := s.Get(ctx, key)
	if got[0] != 'o' {
		t.Fatal("store value was mutated via original slice")
	}
	got[0] = 'Y'
	got2, _ := s.Get(ctx, key)
	if got2[0] != 'o' {
		t.Fatal("store value was mutated via returned slice")
	}
}

func TestKeyAppend(t *testing.T) {
	base := kv.Key{"runs", "r1"}
	a := base.Append("meta")
	b := base.Append("instances", "1")
	if a.String() != "runs:r1:meta" || b.String() != "runs:r1:instances:1" {
		t.Fatalf("Append = %q, %q", a, b)
	}
	if len(base) != 2 {
		t.Fatalf("base modified: %v", base)
	}
}

func TestOpen(t *testing.T) {
	s, err := kv.Open("memory://")
	if err != nil {
		t.Fatalf("Open(memory://): %v", err)
	}
	s.Close()

	dir := filepath.Join(t.TempDir(), "db")
	s, err = kv.Open("badger://" + dir)
	if err != nil {
		t.Fatalf("Open(badger): %v", err)
	}
	if err := s.Set(context.Background(), kv.Key{"k"}, []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	if _, err := kv.Open("redis://localhost"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
	if _, err := kv.Open("badger://"); err == nil {
		t.Fatal("expected error for empty badger dir")
	}
}
