package props

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

const exprEngine = "expr"

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache shares compiled programs through cache.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry exposes registry functions by name and through
// call(name, args...).
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry != nil {
			e.registry = registry.Clone()
		}
	}
}

// exprEvaluator runs validator rules with github.com/expr-lang/expr. Rules
// are always compiled; Evaluate is Compile followed by a single run.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
	options  []exprlang.Option
}

// NewExprEvaluator constructs the default validator Evaluator.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.options = []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if e.registry != nil {
		e.options = append(e.options, exprlang.Function("call", e.dynamicCall))
		for _, name := range e.registry.Names() {
			e.options = append(e.options, exprlang.Function(name, e.registryCall(name)))
		}
	}
	return e
}

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *exprEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(exprEngine, fmt.Errorf("expression must not be empty"))
	}

	key := programCacheKey(exprEngine, expression)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return exprRule{program: program, expression: expression}, nil
			}
		}
	}

	program, err := exprlang.Compile(expression, e.options...)
	if err != nil {
		return nil, wrapEvaluationError(exprEngine, expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return exprRule{program: program, expression: expression}, nil
}

type exprRule struct {
	program    *exprvm.Program
	expression string
}

func (r exprRule) Evaluate(ctx RuleContext) (any, error) {
	result, err := exprlang.Run(r.program, ctx.withDefaults().bindings())
	if err != nil {
		return nil, wrapEvaluationError(exprEngine, r.expression, ctx.Key, err)
	}
	return result, nil
}

func (e *exprEvaluator) registryCall(name string) func(...any) (any, error) {
	return func(arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	}
}

// dynamicCall backs call(name, args...).
func (e *exprEvaluator) dynamicCall(params ...any) (any, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("call requires a function name")
	}
	name, ok := params[0].(string)
	if !ok {
		return nil, fmt.Errorf("call requires a string function name, got %T", params[0])
	}
	return e.registry.Call(name, params[1:]...)
}
