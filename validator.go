package props

import (
	"fmt"
	"strings"
)

// Predicate reports whether a non-empty value is acceptable.
type Predicate func(Value) bool

// Validator is a custom check attached to a FieldSpec. Go predicate
// validators are identified by pointer: declaring the same key again must
// reuse the same *Validator. Expression validators are identified by their
// engine and expression text.
type Validator struct {
	name       string
	predicate  Predicate
	engine     string
	expression string
	rule       CompiledRule
}

// NewValidator wraps a Go predicate.
func NewValidator(name string, fn Predicate) *Validator {
	return &Validator{name: name, predicate: fn}
}

// CompileValidator compiles expression with evaluator. The expression sees the
// candidate as `value` and the field name as `key`, and must yield a bool.
func CompileValidator(evaluator Evaluator, expression string, opts ...CompileOption) (*Validator, error) {
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	expression = strings.TrimSpace(expression)
	engine := evaluatorEngineName(evaluator)
	rule, err := evaluator.Compile(expression, opts...)
	if err != nil {
		return nil, wrapEvaluationError(engine, expression, "", err)
	}
	return &Validator{
		name:       engine + ":" + expression,
		engine:     engine,
		expression: expression,
		rule:       rule,
	}, nil
}

// Name returns the validator label used in diagnostics.
func (v *Validator) Name() string {
	if v == nil {
		return ""
	}
	return v.name
}

// Engine returns the evaluator engine for expression validators.
func (v *Validator) Engine() string {
	if v == nil {
		return ""
	}
	return v.engine
}

// Expression returns the rule text for expression validators.
func (v *Validator) Expression() string {
	if v == nil {
		return ""
	}
	return v.expression
}

// check runs the validator. A panic inside the predicate or a failing or
// non-boolean rule counts as rejection; the error is reported for logging.
func (v *Validator) check(key string, value Value) (ok bool, err error) {
	if v == nil {
		return true, nil
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			ok = false
			err = fmt.Errorf("props: validator %q panicked: %v", v.name, recovered)
		}
	}()
	if v.rule == nil {
		if v.predicate == nil {
			return true, nil
		}
		return v.predicate(value), nil
	}
	result, err := v.rule.Evaluate(RuleContext{Value: value.Interface(), Key: key})
	if err != nil {
		return false, wrapEvaluationError(v.engine, v.expression, key, err)
	}
	passed, isBool := result.(bool)
	if !isBool {
		return false, wrapEvaluationError(v.engine, v.expression, key,
			fmt.Errorf("expression yielded %T, want bool", result))
	}
	return passed, nil
}

func sameValidator(a, b *Validator) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.expression == "" || b.expression == "" {
		return false
	}
	return a.engine == b.engine && a.expression == b.expression
}
