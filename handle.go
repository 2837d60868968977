package stable

import (
	"context"
	"fmt"
	"reflect"

	"github.com/zoobzio/capitan"
)

// Handle is a callable with a durable identity. Every invocation resolves the
// current implementation and forwards arguments and results unchanged.
type Handle struct {
	key      string
	view     *View
	receiver Accessor
	current  func() any
	typed    map[reflect.Type]reflect.Value
	diag     diagnostics
}

// diagnostics is the part of a view configuration a handle reports through.
type diagnostics struct {
	owner       string
	development bool
	logger      Logger
	signalCtx   context.Context
}

func (cfg viewConfig) diagnostics(owner string) diagnostics {
	return diagnostics{
		owner:       owner,
		development: cfg.development,
		logger:      cfg.logger,
		signalCtx:   cfg.signalCtx,
	}
}

// NewHandle wraps current, which yields the implementation to run, bound to
// receiver. BoundFunc implementations receive receiver as self. WithLogger,
// WithDevelopment and WithSignalContext control the async callback warning;
// other options are ignored.
func NewHandle(current func() any, receiver Accessor, opts ...Option) *Handle {
	cfg := viewConfig{
		development: developmentDefault,
		logger:      noopLogger{},
		signalCtx:   context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Handle{current: current, receiver: receiver, diag: cfg.diagnostics("")}
}

// Key returns the record key the handle was created for, empty for handles
// built with NewHandle.
func (h *Handle) Key() string {
	return h.key
}

// Current returns the implementation an invocation would run now.
func (h *Handle) Current() any {
	if h == nil || h.current == nil {
		return nil
	}
	return h.current()
}

// Invoke runs the current implementation with args. It fails when the
// implementation is not callable or args do not fit its signature.
func (h *Handle) Invoke(args ...any) ([]any, error) {
	if h == nil {
		return nil, fmt.Errorf("stable: invoke nil handle: %w", ErrNotCallable)
	}
	fn, receiver, err := h.resolve()
	if err == nil {
		var results []any
		if results, err = invoke(fn, receiver, args); err == nil {
			h.inspect(results)
			return results, nil
		}
	}
	return nil, fmt.Errorf("stable: invoke %s: %w", describeKey(h.key), err)
}

// resolve follows handles stored behind h down to the implementation and the
// receiver of the innermost handle. A chain leading back to a handle already
// visited is not callable.
func (h *Handle) resolve() (any, Accessor, error) {
	fn, receiver := h.Current(), h.receiver
	var seen map[*Handle]struct{}
	for {
		next, ok := fn.(*Handle)
		if !ok {
			return fn, receiver, nil
		}
		if next == nil {
			return nil, receiver, nil
		}
		if seen == nil {
			seen = map[*Handle]struct{}{h: {}}
		}
		if _, loop := seen[next]; loop {
			return nil, nil, fmt.Errorf("%w: handle resolves to itself", ErrNotCallable)
		}
		seen[next] = struct{}{}
		fn, receiver = next.Current(), next.receiver
	}
}

// Call is Invoke for callers that treat misuse as a programming error, like
// reflect.Value.Call it panics instead of returning an error.
func (h *Handle) Call(args ...any) []any {
	results, err := h.Invoke(args...)
	if err != nil {
		panic(err)
	}
	return results
}

// Invoke calls fn with args. Handles and BoundFuncs are dispatched directly,
// other funcs through reflection.
func Invoke(fn any, args ...any) ([]any, error) {
	return invoke(fn, nil, args)
}

func invoke(fn any, receiver Accessor, args []any) ([]any, error) {
	switch typed := fn.(type) {
	case nil:
		return nil, ErrNotCallable
	case *Handle:
		return typed.Invoke(args...)
	case BoundFunc:
		return []any{typed(receiver, args...)}, nil
	case func(Accessor, ...any) any:
		return []any{typed(receiver, args...)}, nil
	}

	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, fmt.Errorf("%w: %T", ErrNotCallable, fn)
	}
	in, err := callArguments(rv.Type(), args)
	if err != nil {
		return nil, err
	}
	out := rv.Call(in)
	results := make([]any, len(out))
	for i, value := range out {
		results[i] = value.Interface()
	}
	return results, nil
}

func callArguments(t reflect.Type, args []any) ([]reflect.Value, error) {
	fixed := t.NumIn()
	if t.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("got %d arguments, want at least %d", len(args), fixed)
		}
	} else if len(args) != fixed {
		return nil, fmt.Errorf("got %d arguments, want %d", len(args), fixed)
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var param reflect.Type
		if i < fixed {
			param = t.In(i)
		} else {
			param = t.In(fixed).Elem()
		}
		value, err := assignable(arg, param)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in[i] = value
	}
	return in, nil
}

func assignable(value any, target reflect.Type) (reflect.Value, error) {
	if value == nil {
		switch target.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(target), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not assignable to %s", target)
	}
	rv := reflect.ValueOf(value)
	if !rv.Type().AssignableTo(target) {
		return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", rv.Type(), target)
	}
	out := reflect.New(target).Elem()
	out.Set(rv)
	return out, nil
}

// inspect warns about awaitable results in development mode.
func (h *Handle) inspect(results []any) {
	if !h.diag.development || h.diag.logger == nil {
		return
	}
	for _, result := range results {
		if !isAwaitable(result) {
			continue
		}
		warning := &AsyncCallbackWarning{
			View:   h.diag.owner,
			Key:    h.key,
			Result: fmt.Sprintf("%T", result),
		}
		h.diag.logger.Log(LogEvent{
			Kind: LogAsyncCallback,
			View: h.diag.owner,
			Key:  h.key,
			Err:  warning,
		})
		capitan.Emit(h.diag.signalCtx, AsyncCallbackDetected,
			KeyView.Field(h.diag.owner),
			KeyName.Field(h.key),
			KeyResult.Field(warning.Result),
		)
		return
	}
}

func isAwaitable(value any) bool {
	if value == nil {
		return false
	}
	if _, ok := value.(Awaitable); ok {
		return true
	}
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Chan && !rv.IsNil() && rv.Type().ChanDir()&reflect.RecvDir != 0
}

// Func returns h as a func of type F. The func is built once per handle and
// type, so repeated calls return the same value. Variadic parameters are
// flattened into the forwarded arguments.
func Func[F any](h *Handle) F {
	t := reflect.TypeFor[F]()
	if t.Kind() != reflect.Func {
		panic(fmt.Sprintf("stable: Func requires a func type, got %s", t))
	}
	if fn, ok := h.typed[t]; ok {
		return fn.Interface().(F)
	}
	fn := reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
		results := h.Call(flattenArguments(t, in)...)
		out := make([]reflect.Value, t.NumOut())
		for i := range out {
			var result any
			if i < len(results) {
				result = results[i]
			}
			value, err := assignable(result, t.Out(i))
			if err != nil {
				if result != nil {
					panic(fmt.Sprintf("stable: result %d of %s: %v", i, describeKey(h.key), err))
				}
				value = reflect.Zero(t.Out(i))
			}
			out[i] = value
		}
		return out
	})
	if h.typed == nil {
		h.typed = make(map[reflect.Type]reflect.Value)
	}
	h.typed[t] = fn
	return fn.Interface().(F)
}

func flattenArguments(t reflect.Type, in []reflect.Value) []any {
	args := make([]any, 0, len(in))
	for i, value := range in {
		if t.IsVariadic() && i == len(in)-1 {
			for j := 0; j < value.Len(); j++ {
				args = append(args, value.Index(j).Interface())
			}
			continue
		}
		args = append(args, value.Interface())
	}
	return args
}

// FuncOf reads key from v and returns it as a func of type F. It returns the
// zero F when the key does not hold a function.
func FuncOf[F any](v *View, key string) F {
	switch value := v.Get(key).(type) {
	case *Handle:
		return Func[F](value)
	case F:
		return value
	}
	var zero F
	return zero
}
