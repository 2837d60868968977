package stable

import (
	"github.com/goliatone/go-stable/compare"
	"github.com/goliatone/go-stable/layering"
	"github.com/goliatone/go-stable/pkg/activity"
	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
)

// View keeps a durable identity over a backing record that is replaced every
// generation. Reads of tracked keys return the cached value while the active
// comparator judges it equal to the live one; function values are returned as
// a Handle whose identity never changes.
//
// A View is owned by one logical instance and is not safe for concurrent use.
// Update or Merge must complete before the generation's first read.
type View struct {
	id         string
	cfg        viewConfig
	compiler   *ruleCompiler
	emitter    *activity.Emitter
	record     Record
	cache      map[string]any
	resolve    resolver
	keys       []string
	generation uint64
}

var _ Accessor = (*View)(nil)

// New constructs an empty view. Until the first Update every key reads live.
func New(opts ...Option) *View {
	v := &View{
		id:     uuid.NewString(),
		cfg:    applyOptions(opts),
		record: Record{},
		cache:  make(map[string]any),
	}
	v.compiler = newRuleCompiler(v.id, &v.cfg)
	v.emitter = activity.NewEmitter(v.cfg.activityHooks, activity.Config{
		Enabled: len(v.cfg.activityHooks) > 0,
		Channel: activity.DefaultChannel,
	})
	return v
}

// ID returns the view identifier used in diagnostics.
func (v *View) ID() string {
	return v.id
}

// Generation returns how many updates or merges have been installed.
func (v *View) Generation() uint64 {
	return v.generation
}

// Update replaces the backing record with a copy of record and resolves cfg
// for the new generation. Cached values are kept until a read finds them
// unequal. On error the previous generation stays installed.
func (v *View) Update(record Record, cfg Config) error {
	return v.install(layering.Clone(record), cfg)
}

// Merge is Update with the previous backing record as the base: keys absent
// from partial keep their current value.
func (v *View) Merge(partial Record, cfg Config) error {
	return v.install(layering.Union(v.record, partial), cfg)
}

func (v *View) install(next Record, cfg Config) error {
	resolve, err := resolvePolicy(cfg, v.compiler)
	if err != nil {
		return err
	}
	v.unwrapOwnHandles(next)
	keysChanged := v.generation == 0 || !layering.SameKeys(v.record, next)
	v.record = next
	v.resolve = resolve
	v.generation++
	ctx := v.cfg.signalCtx
	if keysChanged {
		v.keys = nil
		capitan.Emit(ctx, ViewKeysChanged,
			KeyView.Field(v.id),
			KeyCount.Field(len(next)),
		)
	}
	capitan.Emit(ctx, ViewUpdated,
		KeyView.Field(v.id),
		KeyGeneration.Field(int(v.generation)),
	)
	if v.generation == 1 {
		v.notify(activity.BuildViewCreatedEvent(activity.ViewEventInput{
			ViewID: v.id,
			Keys:   v.Keys(),
		}))
	}
	return nil
}

// unwrapOwnHandles replaces handles issued by v with the implementation they
// currently forward to, read from the record still installed. A handle left
// in place would forward to itself.
func (v *View) unwrapOwnHandles(next Record) {
	for key, value := range next {
		if handle, ok := value.(*Handle); ok && handle != nil && handle.view == v {
			next[key] = handle.Current()
		}
	}
}

// Get returns the value for key under the active policy. Reserved and private
// keys, and keys the policy does not track, read live.
func (v *View) Get(key string) any {
	live := v.record[key]
	if v.cfg.bypass(key) || v.resolve == nil {
		return live
	}
	cmp := v.resolve(key)
	if cmp == nil {
		return live
	}
	if isFunctionValue(live) {
		if handle, ok := v.cache[key].(*Handle); ok {
			return handle
		}
		handle := v.newHandle(key)
		v.cache[key] = handle
		return handle
	}
	return v.accept(key, live, cmp)
}

func (v *View) accept(key string, live any, cmp compare.Func) any {
	if cached, seen := v.cache[key]; seen && cmp(cached, live) {
		return cached
	}
	v.cache[key] = live
	return live
}

// Set writes value to key in the current backing record. Keys are fixed by
// the last Update or Merge; writing any other key fails with an
// UnknownKeyError. Handles are unwrapped to their current implementation.
func (v *View) Set(key string, value any) error {
	if _, ok := v.record[key]; !ok {
		err := &UnknownKeyError{View: v.id, Key: key}
		v.cfg.logger.Log(LogEvent{Kind: LogUnknownKey, View: v.id, Key: key, Err: err})
		capitan.Emit(v.cfg.signalCtx, UnknownKeyRejected,
			KeyView.Field(v.id),
			KeyName.Field(key),
		)
		return err
	}
	if handle, ok := value.(*Handle); ok {
		value = handle.Current()
	}
	v.record[key] = value
	return nil
}

// Keys returns the sorted key set of the backing record.
func (v *View) Keys() []string {
	if v.keys == nil {
		v.keys = layering.SortedKeys(v.record)
	}
	return append([]string(nil), v.keys...)
}

// Has reports whether key is present in the backing record.
func (v *View) Has(key string) bool {
	_, ok := v.record[key]
	return ok
}

// Live returns the backing value for key, bypassing the cache.
func (v *View) Live(key string) any {
	return v.record[key]
}

// Raw returns a copy of the backing record.
func (v *View) Raw() Record {
	return layering.Clone(v.record)
}

func (v *View) newHandle(key string) *Handle {
	return &Handle{
		key:      key,
		view:     v,
		receiver: v,
		current: func() any {
			return v.record[key]
		},
		diag: v.cfg.diagnostics(v.id),
	}
}

// notify drops hook failures; hooks report their own errors.
func (v *View) notify(event activity.Event) {
	_ = v.Notify(v.cfg.signalCtx, event)
}

func isFunctionValue(value any) bool {
	if _, ok := value.(*Handle); ok {
		return true
	}
	return compare.IsCallable(value)
}
