package stable

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-stable/compare"
)

// Function is a helper callable from comparator expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry stores expression helpers keyed by lower-cased name.
// Every registration gets a process-unique serial, so registries compare
// equal in Fingerprint only when they hold the same registrations.
type FunctionRegistry struct {
	mu          sync.RWMutex
	functions   map[string]registeredFunction
	fingerprint string
}

type registeredFunction struct {
	fn     Function
	serial uint64
}

var registrationSerial atomic.Uint64

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]registeredFunction),
	}
}

// DefaultFunctions returns a registry holding the comparator helpers every
// view exposes to expressions: same, equal, shallow, deep and instant. The
// helpers are registered once per process, so default registries share a
// fingerprint.
func DefaultFunctions() *FunctionRegistry {
	return defaultFunctions().Clone()
}

var defaultFunctions = sync.OnceValue(func() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("same", pairFunction("same", compare.Identity))
	_ = registry.Register("equal", pairFunction("equal", compare.Equal))
	_ = registry.Register("shallow", pairFunction("shallow", compare.ShallowFunc()))
	_ = registry.Register("deep", pairFunction("deep", compare.Deep))
	_ = registry.Register("instant", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("stable: instant expects 1 argument, got %d", len(args))
		}
		class := compare.Classify(args[0])
		if class.Kind != compare.DateLike {
			return nil, nil
		}
		return class.Timestamp.UnixNano(), nil
	})
	return registry
})

func pairFunction(name string, cmp compare.Func) Function {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("stable: %s expects 2 arguments, got %d", name, len(args))
		}
		return cmp(args[0], args[1]), nil
	}
}

// reservedHelperNames are the bindings every engine already defines.
var reservedHelperNames = map[string]struct{}{
	"prev": {}, "next": {}, "key": {}, "now": {}, "args": {}, "call": {},
}

// Register stores fn under name. Names are case-insensitive identifiers and
// may not shadow the comparator bindings.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("stable: function %q is nil", name)
	}
	key := strings.ToLower(name)
	if err := validHelperName(key); err != nil {
		return fmt.Errorf("stable: function %q: %w", name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]registeredFunction)
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("stable: function %q already registered", name)
	}
	r.functions[key] = registeredFunction{fn: fn, serial: registrationSerial.Add(1)}
	r.fingerprint = ""
	return nil
}

func validHelperName(name string) error {
	if name == "" {
		return errors.New("name must not be empty")
	}
	if _, reserved := reservedHelperNames[name]; reserved {
		return errors.New("name shadows a comparator binding")
	}
	for i, c := range name {
		letter := c == '_' || (c >= 'a' && c <= 'z')
		if !letter && (i == 0 || c < '0' || c > '9') {
			return errors.New("name must be an identifier")
		}
	}
	return nil
}

// Clone returns a copy that can be extended without affecting r.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &FunctionRegistry{functions: maps.Clone(r.functions), fingerprint: r.fingerprint}
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, errors.New("stable: function registry is nil")
	}
	r.mu.RLock()
	entry, ok := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("stable: function %q not registered", name)
	}
	return entry.fn(args...)
}

// Names returns the registered names in ascending order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.functions))
}

// Fingerprint identifies the registrations held by r. Clones share it until
// either side registers another function. Compiled programs are cached per
// fingerprint because they bind the helpers they were compiled with.
func (r *FunctionRegistry) Fingerprint() string {
	if r == nil {
		return ""
	}
	r.mu.RLock()
	fingerprint, empty := r.fingerprint, len(r.functions) == 0
	r.mu.RUnlock()
	if fingerprint != "" || empty {
		return fingerprint
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	parts := make([]string, 0, len(r.functions))
	for _, name := range slices.Sorted(maps.Keys(r.functions)) {
		parts = append(parts, name+"#"+strconv.FormatUint(r.functions[name].serial, 10))
	}
	r.fingerprint = strings.Join(parts, ",")
	return r.fingerprint
}

// WithFunctionRegistry replaces the helpers exposed to comparator expressions.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *viewConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction adds fn to the default helpers under name.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *viewConfig) {
		if cfg.functions == nil {
			cfg.functions = DefaultFunctions()
		}
		_ = cfg.functions.Register(name, fn)
	}
}
