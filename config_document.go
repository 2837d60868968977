package stable

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// ParseConfig reads a policy document. YAML and JSON are both accepted:
//
//	props: "*"                      # or [a, b], or a per-key map
//	compare: shallow                # strict, shallow, deep or {engine, expr}
//
// In a per-key map each value is true, a mode name, or {engine, expr}. Keys
// mapped to false are left untracked.
func ParseConfig(data []byte) (Config, error) {
	var doc configDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("stable: parse config: %w", err)
	}
	cfg := Config{Props: doc.Props.props}
	if doc.Compare != nil {
		cfg.Compare = doc.Compare.rule
	}
	return cfg, nil
}

type configDocument struct {
	Props   propsDocument `yaml:"props"`
	Compare *ruleDocument `yaml:"compare"`
}

type propsDocument struct {
	props Props
}

func (p *propsDocument) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
		if strings.TrimSpace(node.Value) != "*" {
			return fmt.Errorf("line %d: props must be \"*\", a list or a map, got %q", node.Line, node.Value)
		}
		p.props = Wildcard
	case yaml.SequenceNode:
		var keys []string
		if err := node.Decode(&keys); err != nil {
			return err
		}
		p.props = Keys(keys)
	case yaml.MappingNode:
		var entries map[string]ruleDocument
		if err := node.Decode(&entries); err != nil {
			return err
		}
		rules := make(Rules, len(entries))
		for key, entry := range entries {
			if entry.skip {
				continue
			}
			rules[key] = entry.rule
		}
		p.props = rules
	default:
		return fmt.Errorf("line %d: unsupported props node", node.Line)
	}
	return nil
}

// ruleFields is the mapping form of a rule.
type ruleFields struct {
	Mode   string `yaml:"mode" validate:"omitempty,oneof=strict shallow deep,excluded_with=Engine"`
	Engine string `yaml:"engine" validate:"omitempty,oneof=expr cel js"`
	Expr   string `yaml:"expr" validate:"required_with=Engine,excluded_without=Engine"`
}

type ruleDocument struct {
	rule Rule
	skip bool
}

func (r *ruleDocument) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!bool" {
			var tracked bool
			if err := node.Decode(&tracked); err != nil {
				return err
			}
			r.rule, r.skip = Strict, !tracked
			return nil
		}
		rule, err := ParseMode(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		r.rule = rule
		return nil
	case yaml.MappingNode:
		var fields ruleFields
		if err := node.Decode(&fields); err != nil {
			return err
		}
		if err := validate.Struct(fields); err != nil {
			return fmt.Errorf("line %d: invalid rule: %w", node.Line, err)
		}
		if fields.Engine == "" {
			rule, err := ParseMode(fields.Mode)
			if err != nil {
				return err
			}
			r.rule = rule
			return nil
		}
		switch Mode(fields.Engine) {
		case ModeExpr:
			r.rule = Expr(fields.Expr)
		case ModeCEL:
			r.rule = CEL(fields.Expr)
		case ModeJS:
			r.rule = JS(fields.Expr)
		}
		return nil
	default:
		return fmt.Errorf("line %d: unsupported rule node", node.Line)
	}
}
