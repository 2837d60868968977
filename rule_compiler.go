package stable

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-stable/compare"
)

// ruleCompiler turns rules into comparators for one view. Evaluators are
// created lazily and kept for the view's lifetime.
type ruleCompiler struct {
	view       string
	cfg        *viewConfig
	evaluators map[Mode]Evaluator
}

func newRuleCompiler(view string, cfg *viewConfig) *ruleCompiler {
	return &ruleCompiler{
		view:       view,
		cfg:        cfg,
		evaluators: make(map[Mode]Evaluator),
	}
}

func (c *ruleCompiler) compile(key string, rule Rule) (binder, error) {
	if cmp, ok := builtinComparator(rule); ok {
		return func(string) compare.Func { return cmp }, nil
	}
	mode := rule.Mode()
	if !mode.expression() {
		return nil, fmt.Errorf("stable: unsupported rule mode %q", mode)
	}
	expression := strings.TrimSpace(rule.expr)
	if expression == "" {
		return nil, wrapEvaluationError(string(mode), "", key, fmt.Errorf("expression must not be empty"))
	}
	evaluator, err := c.resolveEvaluator(mode)
	if err != nil {
		return nil, err
	}
	program, err := evaluator.Compile(expression)
	if err != nil {
		return nil, wrapEvaluationError(string(mode), expression, key, err)
	}
	return func(bound string) compare.Func {
		return func(a, b any) bool {
			return c.run(mode, expression, bound, program, a, b)
		}
	}, nil
}

// run evaluates program for one pair. Failures and non-boolean results judge
// the pair unequal so the fresh value wins.
func (c *ruleCompiler) run(mode Mode, expression, key string, program CompiledRule, a, b any) bool {
	now := c.cfg.now()
	ctx := RuleContext{Key: key, Previous: a, Next: b, Now: &now}.withDefaults()
	start := c.cfg.clock.Now()
	out, err := program.Evaluate(ctx)
	duration := c.cfg.clock.Since(start)
	if err == nil {
		if _, ok := out.(bool); !ok {
			err = fmt.Errorf("comparator returned %T, want bool", out)
		}
	}
	err = wrapEvaluationError(string(mode), expression, key, err)
	c.cfg.logger.Log(LogEvent{
		Kind:     LogEvaluation,
		View:     c.view,
		Key:      key,
		Engine:   string(mode),
		Expr:     expression,
		Duration: duration,
		Err:      err,
	})
	if err != nil {
		return false
	}
	return out.(bool)
}

func (c *ruleCompiler) resolveEvaluator(mode Mode) (Evaluator, error) {
	if evaluator, ok := c.evaluators[mode]; ok {
		return evaluator, nil
	}
	if evaluator, ok := c.cfg.evaluators[mode]; ok && evaluator != nil {
		c.evaluators[mode] = evaluator
		return evaluator, nil
	}
	var evaluator Evaluator
	switch mode {
	case ModeExpr:
		evaluator = NewExprEvaluator(
			ExprWithProgramCache(c.cfg.programCache),
			ExprWithFunctionRegistry(c.cfg.functions),
		)
	case ModeCEL:
		evaluator = NewCELEvaluator(
			CELWithProgramCache(c.cfg.programCache),
			CELWithFunctionRegistry(c.cfg.functions),
		)
	case ModeJS:
		evaluator = NewJSEvaluator(
			JSWithProgramCache(c.cfg.programCache),
			JSWithFunctionRegistry(c.cfg.functions),
		)
	}
	if evaluator == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEvaluator, mode)
	}
	c.evaluators[mode] = evaluator
	return evaluator, nil
}
