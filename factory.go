package stable

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-stable/pkg/activity"
	"github.com/zoobzio/capitan"
)

// FactoryOption configures a Factory.
type FactoryOption func(*factoryConfig)

type factoryConfig struct {
	capacity    int
	merge       bool
	onEvict     func(key any, view *View)
	viewOptions []Option
}

// WithCapacity bounds the factory to size views, evicting the least recently
// resolved one when a new key arrives. Without it the factory keeps every
// view until Evict or Purge; bounding the key space is then up to the caller.
func WithCapacity(size int) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.capacity = size
	}
}

// WithEvictHook observes views leaving the factory, whether evicted for
// capacity or removed by Evict and Purge.
func WithEvictHook(hook func(key any, view *View)) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.onEvict = hook
	}
}

// WithMerge makes Resolve merge each produced record into the view instead
// of replacing its backing record.
func WithMerge() FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.merge = true
	}
}

// WithViewOptions applies opts to every view the factory creates.
func WithViewOptions(opts ...Option) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.viewOptions = append(cfg.viewOptions, opts...)
	}
}

// Factory gives every key its own View. Resolve derives the key from its
// argument, creates the view on first use and installs the record produced
// for that argument. Like View, a Factory is not safe for concurrent use.
type Factory[K comparable, A any] struct {
	produce  func(A) Record
	selector func(A) K
	policy   Config
	cfg      factoryConfig
	views    registry[K]
	signals  viewConfig
}

// NewFactory keys views by the argument itself.
func NewFactory[K comparable](produce func(K) Record, policy Config, opts ...FactoryOption) (*Factory[K, K], error) {
	return NewFactoryBy(produce, func(arg K) K { return arg }, policy, opts...)
}

// NewFactoryBy keys views by selector(arg).
func NewFactoryBy[K comparable, A any](produce func(A) Record, selector func(A) K, policy Config, opts ...FactoryOption) (*Factory[K, A], error) {
	if produce == nil {
		return nil, fmt.Errorf("stable: factory requires a record producer")
	}
	if selector == nil {
		return nil, fmt.Errorf("stable: factory requires a key selector")
	}
	f := &Factory[K, A]{
		produce:  produce,
		selector: selector,
		policy:   policy,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&f.cfg)
		}
	}
	f.signals = applyOptions(f.cfg.viewOptions)

	if f.cfg.capacity > 0 {
		views, err := newLRURegistry(f.cfg.capacity, f.evicted)
		if err != nil {
			return nil, fmt.Errorf("stable: factory registry: %w", err)
		}
		f.views = views
	} else {
		f.views = newMapRegistry(f.evicted)
	}
	return f, nil
}

// Resolve returns the view for arg's key after installing the record
// produced for arg. An error leaves the previous generation installed.
func (f *Factory[K, A]) Resolve(arg A) (*View, error) {
	key := f.selector(arg)
	if !hashable(key) {
		return nil, fmt.Errorf("%w: %T", ErrUnhashableKey, key)
	}
	view, ok := f.views.Get(key)
	if !ok {
		view = New(f.cfg.viewOptions...)
		f.views.Add(key, view)
		capitan.Emit(f.signals.signalCtx, FactoryViewCreated,
			KeyView.Field(view.id),
			KeyFactoryKey.Field(formatKey(key)),
			KeyRegistrySize.Field(f.views.Len()),
		)
	}
	record := f.produce(arg)
	var err error
	if f.cfg.merge {
		err = view.Merge(record, f.policy)
	} else {
		err = view.Update(record, f.policy)
	}
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Peek returns the view for key without producing a new generation or
// touching its recency.
func (f *Factory[K, A]) Peek(key K) (*View, bool) {
	return f.views.Peek(key)
}

// Evict drops the view for key. The next Resolve for key starts a fresh view.
func (f *Factory[K, A]) Evict(key K) bool {
	return f.views.Remove(key)
}

// Purge drops every view.
func (f *Factory[K, A]) Purge() {
	f.views.Purge()
}

// Len returns the number of live views.
func (f *Factory[K, A]) Len() int {
	return f.views.Len()
}

// Keys returns the keys with a live view. The order is unspecified for
// unbounded factories and oldest first for bounded ones.
func (f *Factory[K, A]) Keys() []K {
	return f.views.Keys()
}

func (f *Factory[K, A]) evicted(key K, view *View) {
	capitan.Emit(f.signals.signalCtx, FactoryViewEvicted,
		KeyView.Field(view.id),
		KeyFactoryKey.Field(formatKey(key)),
		KeyRegistrySize.Field(f.registrySize()),
	)
	view.notify(activity.BuildViewEvictedEvent(activity.ViewEventInput{
		ViewID:     view.id,
		FactoryKey: formatKey(key),
	}))
	if f.cfg.onEvict != nil {
		f.cfg.onEvict(key, view)
	}
}

// registrySize tolerates eviction callbacks fired while the registry is
// being built or purged.
func (f *Factory[K, A]) registrySize() int {
	if f.views == nil {
		return 0
	}
	return f.views.Len()
}

// hashable reports whether key can index a map without panicking. Interface
// typed keys are comparable at compile time but may hold slices or maps.
func hashable(key any) bool {
	if key == nil {
		return true
	}
	return reflect.ValueOf(key).Comparable()
}

func formatKey(key any) string {
	if s, ok := key.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", key)
}
