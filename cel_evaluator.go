package stable

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry exposes the registry's helpers through
// call(name, ...) and as unary or binary functions of their own name.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry != nil {
			e.registry = registry.Clone()
		}
	}
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	program, err := loadProgram(e.cache, ModeCEL, e.registry, expression, e.build)
	if err != nil {
		return nil, err
	}
	return celRule{program: program, expression: expression}, nil
}

func (e *celEvaluator) build(expression string) (celgo.Program, error) {
	env, err := celgo.NewEnv(e.envOptions()...)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return env.Program(ast)
}

func (e *celEvaluator) envOptions() []celgo.EnvOption {
	opts := []celgo.EnvOption{
		celgo.Variable("prev", celgo.DynType),
		celgo.Variable("next", celgo.DynType),
		celgo.Variable("key", celgo.StringType),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.MapType(celgo.StringType, celgo.DynType)),
	}
	if e.registry == nil {
		return opts
	}
	opts = append(opts, celgo.Function("call",
		celgo.Overload("call_string_dyn",
			[]*celgo.Type{celgo.StringType, celgo.DynType},
			celgo.DynType,
			celgo.BinaryBinding(func(name, arg ref.Val) ref.Val {
				return e.dispatch(name, arg)
			}),
		),
		celgo.Overload("call_string_dyn_dyn",
			[]*celgo.Type{celgo.StringType, celgo.DynType, celgo.DynType},
			celgo.DynType,
			celgo.FunctionBinding(func(values ...ref.Val) ref.Val {
				return e.dispatch(values...)
			}),
		),
	))
	for _, name := range e.registry.Names() {
		helper := name
		opts = append(opts, celgo.Function(helper,
			celgo.Overload(helper+"_dyn",
				[]*celgo.Type{celgo.DynType},
				celgo.DynType,
				celgo.UnaryBinding(func(arg ref.Val) ref.Val {
					return e.callHelper(helper, arg)
				}),
			),
			celgo.Overload(helper+"_dyn_dyn",
				[]*celgo.Type{celgo.DynType, celgo.DynType},
				celgo.DynType,
				celgo.BinaryBinding(func(a, b ref.Val) ref.Val {
					return e.callHelper(helper, a, b)
				}),
			),
		))
	}
	return opts
}

// dispatch serves call(name, ...): the first value names the helper.
func (e *celEvaluator) dispatch(values ...ref.Val) ref.Val {
	name, ok := values[0].Value().(string)
	if !ok {
		return types.NewErr("stable: call name must be a string")
	}
	return e.callHelper(name, values[1:]...)
}

func (e *celEvaluator) callHelper(name string, values ...ref.Val) ref.Val {
	args := make([]any, len(values))
	for i, value := range values {
		args[i] = value.Value()
	}
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

type celRule struct {
	program    celgo.Program
	expression string
}

func (r celRule) Evaluate(ctx RuleContext) (any, error) {
	out, _, err := r.program.Eval(ctx.bindings())
	if err != nil {
		return nil, wrapEvaluationError(string(ModeCEL), r.expression, ctx.Key, fmt.Errorf("eval: %w", err))
	}
	return out.Value(), nil
}
