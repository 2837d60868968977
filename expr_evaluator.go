package stable

import (
	"time"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry exposes the registry's helpers as expr functions.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry != nil {
			e.registry = registry.Clone()
		}
	}
}

// exprEnv is the typed environment expr comparators are checked against.
// Unknown identifiers fail at compile time.
type exprEnv struct {
	Prev any            `expr:"prev"`
	Next any            `expr:"next"`
	Key  string         `expr:"key"`
	Now  time.Time      `expr:"now"`
	Args map[string]any `expr:"args"`
}

func newExprEnv(ctx RuleContext) exprEnv {
	ctx = ctx.withDefaults()
	return exprEnv{
		Prev: ctx.Previous,
		Next: ctx.Next,
		Key:  ctx.Key,
		Now:  *ctx.Now,
		Args: ctx.Args,
	}
}

type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	program, err := loadProgram(e.cache, ModeExpr, e.registry, expression, e.build)
	if err != nil {
		return nil, err
	}
	return exprRule{program: program, expression: expression}, nil
}

func (e *exprEvaluator) build(expression string) (*exprvm.Program, error) {
	options := []exprlang.Option{exprlang.Env(exprEnv{})}
	if e.registry != nil {
		for _, name := range e.registry.Names() {
			options = append(options, exprlang.Function(name, e.helper(name)))
		}
	}
	return exprlang.Compile(expression, options...)
}

func (e *exprEvaluator) helper(name string) func(...any) (any, error) {
	return func(arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	}
}

type exprRule struct {
	program    *exprvm.Program
	expression string
}

func (r exprRule) Evaluate(ctx RuleContext) (any, error) {
	result, err := exprlang.Run(r.program, newExprEnv(ctx))
	if err != nil {
		return nil, wrapEvaluationError(string(ModeExpr), r.expression, ctx.Key, err)
	}
	return result, nil
}
