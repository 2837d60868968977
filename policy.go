package stable

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-stable/compare"
)

// Mode names how a rule judges two values.
type Mode string

const (
	ModeStrict  Mode = "strict"
	ModeShallow Mode = "shallow"
	ModeDeep    Mode = "deep"
	ModeCustom  Mode = "custom"
	ModeExpr    Mode = "expr"
	ModeCEL     Mode = "cel"
	ModeJS      Mode = "js"
)

func (m Mode) expression() bool {
	return m == ModeExpr || m == ModeCEL || m == ModeJS
}

// Rule selects the comparator for a key. The zero Rule is Strict.
type Rule struct {
	mode Mode
	fn   compare.Func
	expr string
}

var (
	// Strict keeps the cached value while it is identical, or for dates and
	// patterns, equivalent.
	Strict = Rule{mode: ModeStrict}
	// Shallow compares sequences and records one level deep.
	Shallow = Rule{mode: ModeShallow}
	// Deep compares sequences and records recursively.
	Deep = Rule{mode: ModeDeep}
)

// Custom wraps a caller supplied comparator.
func Custom(fn compare.Func) Rule {
	return Rule{mode: ModeCustom, fn: fn}
}

// Expr builds a rule from an expr-lang expression evaluated with prev, next,
// key and now bound.
func Expr(expression string) Rule {
	return Rule{mode: ModeExpr, expr: expression}
}

// CEL builds a rule from a CEL expression.
func CEL(expression string) Rule {
	return Rule{mode: ModeCEL, expr: expression}
}

// JS builds a rule from a JavaScript expression. Requires the js_eval build tag.
func JS(expression string) Rule {
	return Rule{mode: ModeJS, expr: expression}
}

// ParseMode converts a mode name into a Rule. "true" is accepted as Strict.
func ParseMode(value string) (Rule, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "true", string(ModeStrict):
		return Strict, nil
	case string(ModeShallow):
		return Shallow, nil
	case string(ModeDeep):
		return Deep, nil
	default:
		return Rule{}, fmt.Errorf("stable: unknown compare mode %q", value)
	}
}

// Mode returns the rule mode, Strict for the zero rule.
func (r Rule) Mode() Mode {
	if r.mode == "" {
		return ModeStrict
	}
	return r.mode
}

// Expression returns the source of an expression rule.
func (r Rule) Expression() string {
	return r.expr
}

// Props selects which keys are tracked. It is one of Wildcard, Keys or Rules.
type Props interface {
	isProps()
}

type wildcard struct{}

func (wildcard) isProps() {}

// Wildcard tracks every key with the config's default rule.
var Wildcard Props = wildcard{}

// Keys tracks only the listed keys with the config's default rule.
type Keys []string

func (Keys) isProps() {}

// Rules tracks only the mapped keys, each with its own rule.
type Rules map[string]Rule

func (Rules) isProps() {}

// Config is the comparison configuration applied by one update. The zero
// Config tracks every key with Strict.
type Config struct {
	Props   Props
	Compare Rule
}

// resolver returns the comparator for key, or nil when the key bypasses
// caching.
type resolver func(key string) compare.Func

// binder specialises a compiled rule for the key it is applied to.
type binder func(key string) compare.Func

func bypassAll(string) compare.Func { return nil }

// resolvePolicy builds the per-key resolution once for a generation.
func resolvePolicy(cfg Config, compiler *ruleCompiler) (resolver, error) {
	switch props := cfg.Props.(type) {
	case nil, wildcard:
		bind, err := compiler.compile("", cfg.Compare)
		if err != nil {
			return nil, err
		}
		return resolver(bind), nil
	case Keys:
		if len(props) == 0 {
			return bypassAll, nil
		}
		bind, err := compiler.compile("", cfg.Compare)
		if err != nil {
			return nil, err
		}
		tracked := keySet(props)
		return func(key string) compare.Func {
			if _, ok := tracked[key]; ok {
				return bind(key)
			}
			return nil
		}, nil
	case Rules:
		if len(props) == 0 {
			return bypassAll, nil
		}
		resolved := make(map[string]compare.Func, len(props))
		for key, rule := range props {
			bind, err := compiler.compile(key, rule)
			if err != nil {
				return nil, err
			}
			resolved[key] = bind(key)
		}
		return func(key string) compare.Func {
			return resolved[key]
		}, nil
	default:
		return nil, fmt.Errorf("stable: unsupported props %T", cfg.Props)
	}
}

func builtinComparator(rule Rule) (compare.Func, bool) {
	switch rule.Mode() {
	case ModeStrict:
		return compare.Equal, true
	case ModeShallow:
		return compare.ShallowFunc(), true
	case ModeDeep:
		return compare.Deep, true
	case ModeCustom:
		if rule.fn == nil {
			return compare.Equal, true
		}
		return rule.fn, true
	}
	return nil, false
}
