//go:build js_eval

package stable

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{cache: cfg.cache, registry: cfg.registry}
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	program, err := loadProgram(e.cache, ModeJS, e.registry, expression, compileJS)
	if err != nil {
		return nil, err
	}
	return jsRule{evaluator: e, program: program, expression: expression}, nil
}

// compileJS wraps expression in an immediately invoked function so it can be
// a bare expression or a block ending in return.
func compileJS(expression string) (*goja.Program, error) {
	return goja.Compile("comparator", fmt.Sprintf("(function(){ return (%s); })()", expression), true)
}

// runtime builds a fresh goja runtime per comparison; runtimes are not safe
// for reuse across goroutines.
func (e *jsEvaluator) runtime(ctx RuleContext) (*goja.Runtime, error) {
	vm := goja.New()
	globals := ctx.bindings()
	if e.registry != nil {
		globals["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
		for _, name := range e.registry.Names() {
			helper := name
			globals[helper] = func(arguments ...any) (any, error) {
				return e.registry.Call(helper, arguments...)
			}
		}
	}
	for name, value := range globals {
		if err := vm.Set(name, value); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}
	return vm, nil
}

type jsRule struct {
	evaluator  *jsEvaluator
	program    *goja.Program
	expression string
}

func (r jsRule) Evaluate(ctx RuleContext) (any, error) {
	vm, err := r.evaluator.runtime(ctx)
	if err == nil {
		var value goja.Value
		if value, err = vm.RunProgram(r.program); err == nil {
			return value.Export(), nil
		}
	}
	return nil, wrapEvaluationError(string(ModeJS), r.expression, ctx.Key, err)
}

func jsEvaluatorAvailable() bool {
	return true
}
