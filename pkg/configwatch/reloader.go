package configwatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	stable "github.com/goliatone/go-stable"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultDebounce is how long a burst of changes settles before it is parsed.
const DefaultDebounce = 100 * time.Millisecond

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("configwatch: already started")

// Reload signals.
var (
	ConfigApplied = capitan.NewSignal(
		"stable.config.applied",
		"Comparison policy reloaded",
	)
	ConfigRejected = capitan.NewSignal(
		"stable.config.rejected",
		"Comparison policy document rejected",
	)
)

// KeyError carries the rejection reason.
var KeyError = capitan.NewStringKey("error")

// Option configures a Reloader.
type Option func(*Reloader)

// WithDebounce sets the settle window. Zero applies every change at once.
func WithDebounce(d time.Duration) Option {
	return func(r *Reloader) {
		if d >= 0 {
			r.debounce = d
		}
	}
}

// WithClock replaces the clock driving the debounce timer.
func WithClock(clock clockz.Clock) Option {
	return func(r *Reloader) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithParser replaces stable.ParseConfig.
func WithParser(parse func([]byte) (stable.Config, error)) Option {
	return func(r *Reloader) {
		if parse != nil {
			r.parse = parse
		}
	}
}

// Reloader parses documents from a Watcher and hands every valid Config to a
// callback. A document that fails to parse, or that the callback rejects,
// leaves the previous Config current.
type Reloader struct {
	watcher  Watcher
	apply    func(stable.Config) error
	parse    func([]byte) (stable.Config, error)
	clock    clockz.Clock
	debounce time.Duration

	current   atomic.Pointer[stable.Config]
	lastError atomic.Pointer[error]
	started   atomic.Bool
	done      chan struct{}
	mu        sync.Mutex
}

// New builds a Reloader. apply may be nil when callers only poll Current.
func New(watcher Watcher, apply func(stable.Config) error, opts ...Option) *Reloader {
	r := &Reloader{
		watcher:  watcher,
		apply:    apply,
		parse:    stable.ParseConfig,
		clock:    clockz.RealClock,
		debounce: DefaultDebounce,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Start applies the first document synchronously and then follows changes in
// the background until ctx is done. The error reports a failed first
// document; watching continues regardless.
func (r *Reloader) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	changes, err := r.watcher.Watch(ctx)
	if err != nil {
		close(r.done)
		return err
	}

	var initial error
	select {
	case raw, ok := <-changes:
		if !ok {
			close(r.done)
			return fmt.Errorf("configwatch: watcher closed before the first document")
		}
		initial = r.process(ctx, raw)
	case <-ctx.Done():
		close(r.done)
		return ctx.Err()
	}

	go r.loop(ctx, changes)
	return initial
}

// Done is closed when the background loop exits.
func (r *Reloader) Done() <-chan struct{} {
	return r.done
}

// Current returns the last applied Config.
func (r *Reloader) Current() (stable.Config, bool) {
	cfg := r.current.Load()
	if cfg == nil {
		return stable.Config{}, false
	}
	return *cfg, true
}

// LastError returns the error of the most recent document, nil after a
// successful one.
func (r *Reloader) LastError() error {
	err := r.lastError.Load()
	if err == nil {
		return nil
	}
	return *err
}

func (r *Reloader) loop(ctx context.Context, changes <-chan []byte) {
	defer close(r.done)
	var (
		timer      clockz.Timer
		pending    []byte
		hasPending bool
	)
	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case raw, ok := <-changes:
			if !ok {
				if hasPending {
					_ = r.process(ctx, pending)
				}
				return
			}
			if r.debounce == 0 {
				_ = r.process(ctx, raw)
				continue
			}
			pending, hasPending = raw, true
			if timer == nil {
				timer = r.clock.NewTimer(r.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C():
				default:
				}
			}
			timer.Reset(r.debounce)
		case <-timerC:
			if hasPending {
				_ = r.process(ctx, pending)
				hasPending = false
			}
		}
	}
}

func (r *Reloader) process(ctx context.Context, raw []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := r.parse(raw)
	if err == nil && r.apply != nil {
		if applyErr := r.apply(cfg); applyErr != nil {
			err = fmt.Errorf("configwatch: apply: %w", applyErr)
		}
	}
	if err != nil {
		r.lastError.Store(&err)
		capitan.Emit(ctx, ConfigRejected, KeyError.Field(err.Error()))
		return err
	}
	r.current.Store(&cfg)
	r.lastError.Store(nil)
	capitan.Emit(ctx, ConfigApplied)
	return nil
}
