package stable

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-stable/pkg/activity"
	"github.com/zoobzio/clockz"
)

// Record is the set of key/value pairs supplied for one generation.
type Record = map[string]any

// Accessor is the read/write surface shared by views and handed to bound
// functions as their receiver.
type Accessor interface {
	Get(key string) any
	Set(key string, value any) error
	Keys() []string
	Has(key string) bool
}

// BoundFunc is an implementation that expects the view it was read from as an
// explicit receiver.
type BoundFunc func(self Accessor, args ...any) any

// Awaitable marks results that complete later. Handles warn when a wrapped
// callback returns one.
type Awaitable interface {
	Done() <-chan struct{}
}

// DefaultReservedKeys bypass caching and always return the live value.
var DefaultReservedKeys = []string{"key", "ref"}

// DefaultPrivatePrefix marks keys that bypass caching.
const DefaultPrivatePrefix = "_"

// Option configures a View.
type Option func(*viewConfig)

type viewConfig struct {
	logger        Logger
	development   bool
	reserved      map[string]struct{}
	privatePrefix string
	programCache  ProgramCache
	functions     *FunctionRegistry
	evaluators    map[Mode]Evaluator
	activityHooks activity.Hooks
	signalCtx     context.Context
	clock         clockz.Clock
}

func applyOptions(opts []Option) viewConfig {
	cfg := viewConfig{
		development:   developmentDefault,
		privatePrefix: DefaultPrivatePrefix,
		reserved:      keySet(DefaultReservedKeys),
		clock:         clockz.RealClock,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.signalCtx == nil {
		cfg.signalCtx = context.Background()
	}
	if cfg.programCache == nil {
		cfg.programCache = NewProgramCache()
	}
	if cfg.functions == nil {
		cfg.functions = DefaultFunctions()
	}
	return cfg
}

// WithDevelopment toggles development diagnostics such as the async callback
// warning. Builds tagged stable_production default to false.
func WithDevelopment(enabled bool) Option {
	return func(cfg *viewConfig) {
		cfg.development = enabled
	}
}

// WithReservedKeys replaces the framework keys that always bypass caching.
func WithReservedKeys(keys ...string) Option {
	return func(cfg *viewConfig) {
		cfg.reserved = keySet(keys)
	}
}

// WithPrivatePrefix changes the prefix that marks private, uncached keys. An
// empty prefix disables the rule.
func WithPrivatePrefix(prefix string) Option {
	return func(cfg *viewConfig) {
		cfg.privatePrefix = prefix
	}
}

// WithProgramCache shares compiled comparator programs across views.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *viewConfig) {
		cfg.programCache = cache
	}
}

// WithEvaluator overrides the evaluator used for one expression engine.
func WithEvaluator(engine Mode, e Evaluator) Option {
	return func(cfg *viewConfig) {
		if e == nil {
			return
		}
		if cfg.evaluators == nil {
			cfg.evaluators = make(map[Mode]Evaluator)
		}
		cfg.evaluators[engine] = e
	}
}

// WithSignalContext sets the context diagnostics signals are emitted with.
func WithSignalContext(ctx context.Context) Option {
	return func(cfg *viewConfig) {
		cfg.signalCtx = ctx
	}
}

// WithClock sets the clock used to timestamp activity events.
func WithClock(clock clockz.Clock) Option {
	return func(cfg *viewConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

func (cfg viewConfig) bypass(key string) bool {
	if _, ok := cfg.reserved[key]; ok {
		return true
	}
	return cfg.privatePrefix != "" && strings.HasPrefix(key, cfg.privatePrefix)
}

func (cfg viewConfig) now() time.Time {
	return cfg.clock.Now()
}

func keySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}
