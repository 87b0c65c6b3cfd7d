package cache

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestPutGet(t *testing.T) {
	s := openStore(t)
	key := Key("test", []byte("input"))

	if s.Contains(key) {
		t.Fatal("empty store claims to contain the key")
	}

	if _, err := s.Put(key, strings.NewReader("payload")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !s.Contains(key) {
		t.Fatal("committed entry not found")
	}

	r, err := s.Get(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("entry = %q, want %q", data, "payload")
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)

	_, err := s.Get(Key("test", []byte("absent")))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPutLeavesNoStagingDebris(t *testing.T) {
	s := openStore(t)

	if _, err := s.Put(Key("test", []byte("a")), strings.NewReader("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := os.ReadDir(s.staging)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging dir not empty after commit: %d entries", len(entries))
	}
}

func TestMaterialize(t *testing.T) {
	s := openStore(t)
	key := Key("test", []byte("venv"))

	var fills atomic.Int32
	fill := func(w io.Writer) error {
		fills.Add(1)
		_, err := io.WriteString(w, "environment")
		return err
	}

	path, hit, err := s.Materialize(key, fill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit {
		t.Fatal("cold key reported as hit")
	}
	if data, _ := os.ReadFile(path); string(data) != "environment" {
		t.Fatalf("entry = %q, want %q", data, "environment")
	}

	path2, hit, err := s.Materialize(key, fill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hit {
		t.Fatal("warm key reported as miss")
	}
	if path2 != path {
		t.Fatalf("hit path = %q, want %q", path2, path)
	}

	if got := fills.Load(); got != 1 {
		t.Fatalf("fill called %d times, want 1", got)
	}

	stats := s.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("stats = %+v, want 1 hit and 1 miss", stats)
	}
}

func TestMaterializeFillError(t *testing.T) {
	s := openStore(t)
	key := Key("test", []byte("broken"))
	boom := errors.New("resolver exploded")

	_, _, err := s.Materialize(key, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	// A failed fill must not leave a committed entry behind.
	if s.Contains(key) {
		t.Fatal("failed fill committed a partial entry")
	}
}

func TestMaterializeConcurrent(t *testing.T) {
	s := openStore(t)
	key := Key("test", []byte("shared"))

	var fills atomic.Int32
	var wg sync.WaitGroup

	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Materialize(key, func(w io.Writer) error {
				fills.Add(1)
				_, err := io.WriteString(w, "once")
				return err
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := fills.Load(); got != 1 {
		t.Fatalf("fill called %d times across concurrent callers, want 1", got)
	}
}

func TestResolverDirUnderRoot(t *testing.T) {
	s := openStore(t)

	if !strings.HasPrefix(s.ResolverDir(), s.Dir()) {
		t.Fatalf("resolver dir %q is not under the store root %q", s.ResolverDir(), s.Dir())
	}
	if _, err := os.Stat(s.ResolverDir()); err != nil {
		t.Fatalf("resolver dir not created: %v", err)
	}
}
