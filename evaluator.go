package stable

import "time"

// RuleContext carries the pair an expression comparator judges.
type RuleContext struct {
	Key      string
	Previous any
	Next     any
	Now      *time.Time
	Args     map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

// bindings are the variables every engine exposes to expressions.
func (ctx RuleContext) bindings() map[string]any {
	ctx = ctx.withDefaults()
	return map[string]any{
		"prev": ctx.Previous,
		"next": ctx.Next,
		"key":  ctx.Key,
		"now":  *ctx.Now,
		"args": ctx.Args,
	}
}

// Evaluator compiles comparator expressions for one engine.
type Evaluator interface {
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable comparator program. Evaluate returns the
// expression result; comparators expect a bool.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*jsEvaluatorConfig)

type jsEvaluatorConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// JSWithProgramCache applies a ProgramCache to the JS evaluator.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		cfg.cache = cache
	}
}

// JSWithFunctionRegistry exposes the registry's helpers to JS comparators.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		if registry != nil {
			cfg.registry = registry.Clone()
		}
	}
}

func applyJSEvaluatorOptions(opts []JSEvaluatorOption) jsEvaluatorConfig {
	cfg := jsEvaluatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
