package risk

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// CustomRule is a rule whose predicate is an expr-lang boolean expression,
// loaded from configuration.
type CustomRule struct {
	Name       string `json:"name" yaml:"name"`
	Score      int    `json:"score" yaml:"score"`
	Reason     string `json:"reason" yaml:"reason"`
	Expression string `json:"expression" yaml:"expression"`
}

// RuleEnv is the environment custom rule expressions run against. Keys and
// Values are lower-cased.
type RuleEnv struct {
	Keys   []string
	Values []string
	Fields map[string]string
}

func newRuleEnv(md Metadata) RuleEnv {
	env := RuleEnv{
		Keys:   make([]string, 0, len(md)),
		Values: make([]string, 0, len(md)),
		Fields: make(map[string]string, len(md)),
	}
	for _, f := range md {
		key := strings.ToLower(f.Key)
		value := lowerText(f.Value)
		env.Keys = append(env.Keys, key)
		env.Values = append(env.Values, value)
		if _, ok := env.Fields[key]; !ok {
			env.Fields[key] = value
		}
	}
	return env
}

// HasKey reports whether any key contains substr.
func (e RuleEnv) HasKey(substr string) bool {
	return containsAny(e.Keys, strings.ToLower(substr))
}

// HasValue reports whether any value contains substr.
func (e RuleEnv) HasValue(substr string) bool {
	return containsAny(e.Values, strings.ToLower(substr))
}

// Contains reports whether any key or value contains substr.
func (e RuleEnv) Contains(substr string) bool {
	return e.HasKey(substr) || e.HasValue(substr)
}

// Value returns the lower-cased value of the first field named key.
func (e RuleEnv) Value(key string) string {
	return e.Fields[strings.ToLower(key)]
}

func containsAny(items []string, substr string) bool {
	for _, item := range items {
		if strings.Contains(item, substr) {
			return true
		}
	}
	return false
}

// CompileRule turns a CustomRule into a Rule.
func CompileRule(cr CustomRule) (Rule, error) {
	name := strings.TrimSpace(cr.Name)
	if name == "" {
		return Rule{}, fmt.Errorf("custom rule: name is required")
	}
	if cr.Score <= 0 {
		return Rule{}, fmt.Errorf("custom rule %s: score must be positive", name)
	}
	program, err := expr.Compile(cr.Expression, expr.Env(RuleEnv{}), expr.AsBool())
	if err != nil {
		return Rule{}, fmt.Errorf("custom rule %s: %w", name, err)
	}
	reason := cr.Reason
	if reason == "" {
		reason = fmt.Sprintf("Custom rule %s matched.", name)
	}
	return Rule{
		Name:      name,
		Score:     cr.Score,
		Reason:    reason,
		Predicate: exprPredicate(program),
	}, nil
}

func exprPredicate(program *vm.Program) Predicate {
	return func(md Metadata) (bool, error) {
		out, err := expr.Run(program, newRuleEnv(md))
		if err != nil {
			return false, err
		}
		matched, ok := out.(bool)
		if !ok {
			return false, fmt.Errorf("expression returned %T", out)
		}
		return matched, nil
	}
}

// WithCustomRules appends compiled custom rules after the current rule set.
func WithCustomRules(rules []CustomRule) Option {
	return func(a *Analyzer) error {
		seen := make(map[string]struct{}, len(a.rules))
		for _, r := range a.rules {
			seen[r.Name] = struct{}{}
		}
		for _, cr := range rules {
			rule, err := CompileRule(cr)
			if err != nil {
				return err
			}
			if _, ok := seen[rule.Name]; ok {
				return fmt.Errorf("custom rule %s: duplicate rule name", rule.Name)
			}
			seen[rule.Name] = struct{}{}
			a.rules = append(a.rules, rule)
		}
		return nil
	}
}
