package configwatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	stable "github.com/goliatone/go-stable"
	"github.com/zoobzio/clockz"
)

func TestReloaderAppliesInitialDocument(t *testing.T) {
	ch := make(chan []byte, 1)
	ch <- []byte("props: [count]\ncompare: shallow\n")

	var applied atomic.Int32
	reloader := New(NewChannelWatcher(ch), func(stable.Config) error {
		applied.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := reloader.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if applied.Load() != 1 {
		t.Fatalf("expected initial document applied once, got %d", applied.Load())
	}
	cfg, ok := reloader.Current()
	if !ok {
		t.Fatalf("expected current config")
	}
	keys, isKeys := cfg.Props.(stable.Keys)
	if !isKeys || len(keys) != 1 || keys[0] != "count" {
		t.Fatalf("unexpected props %#v", cfg.Props)
	}
	if cfg.Compare.Mode() != stable.ModeShallow {
		t.Fatalf("expected shallow compare, got %s", cfg.Compare.Mode())
	}
	if err := reloader.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestReloaderDebouncesBursts(t *testing.T) {
	clock := clockz.NewFakeClock()
	ch := make(chan []byte, 10)
	ch <- []byte("compare: strict")

	var applied atomic.Int32
	var last atomic.Value
	reloader := New(NewChannelWatcher(ch), func(cfg stable.Config) error {
		applied.Add(1)
		last.Store(cfg.Compare.Mode())
		return nil
	}, WithDebounce(100*time.Millisecond), WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := reloader.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	ch <- []byte("compare: shallow")
	ch <- []byte("compare: deep")
	time.Sleep(10 * time.Millisecond)

	if applied.Load() != 1 {
		t.Fatalf("expected burst to be held back, got %d applies", applied.Load())
	}

	clock.Advance(150 * time.Millisecond)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)

	if applied.Load() != 2 {
		t.Fatalf("expected 2 applies after debounce, got %d", applied.Load())
	}
	if last.Load() != stable.ModeDeep {
		t.Fatalf("expected latest document applied, got %v", last.Load())
	}
}

func TestReloaderKeepsPreviousConfigOnFailure(t *testing.T) {
	ch := make(chan []byte, 4)
	ch <- []byte("compare: deep")

	reject := errors.New("rejected")
	var calls atomic.Int32
	reloader := New(NewChannelWatcher(ch), func(stable.Config) error {
		if calls.Add(1) == 3 {
			return reject
		}
		return nil
	}, WithDebounce(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := reloader.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	ch <- []byte("compare: sideways")
	waitFor(t, func() bool { return reloader.LastError() != nil })
	if cfg, _ := reloader.Current(); cfg.Compare.Mode() != stable.ModeDeep {
		t.Fatalf("expected deep to stay current after parse failure, got %s", cfg.Compare.Mode())
	}

	ch <- []byte("compare: shallow")
	waitFor(t, func() bool { return reloader.LastError() == nil })

	ch <- []byte("compare: strict")
	waitFor(t, func() bool { return errors.Is(reloader.LastError(), reject) })
	if cfg, _ := reloader.Current(); cfg.Compare.Mode() != stable.ModeShallow {
		t.Fatalf("expected shallow to stay current after rejected apply, got %s", cfg.Compare.Mode())
	}
}

func TestFileWatcherEmitsInitialContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("props: \"*\"\ncompare: deep\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	reloader := New(NewFileWatcher(path), nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := reloader.Start(ctx); err != nil {
		cancel()
		t.Fatalf("start: %v", err)
	}
	cfg, ok := reloader.Current()
	if !ok || cfg.Props != stable.Wildcard || cfg.Compare.Mode() != stable.ModeDeep {
		cancel()
		t.Fatalf("unexpected config %#v", cfg)
	}

	cancel()
	select {
	case <-reloader.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("expected loop to exit after cancel")
	}
}

func TestFileWatcherMissingFile(t *testing.T) {
	reloader := New(NewFileWatcher(filepath.Join(t.TempDir(), "absent.yaml")), nil)
	if err := reloader.Start(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
