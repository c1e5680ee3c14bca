package props

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicateValidator(t *testing.T) {
	nonBlank := NewValidator("nonBlank", func(v Value) bool {
		s, _ := v.AsString()
		return strings.TrimSpace(s) != ""
	})
	k := New[struct{}]()
	require.NoError(t, k.Define(Field("title", KindString, WithValidator(nonBlank), WithDefault("untitled"))))

	resolved, meta, err := k.Preview(map[string]any{"title": "  "})
	require.NoError(t, err)
	assert.Equal(t, String("untitled"), resolved.Get("title"))
	assert.Equal(t, []string{"title"}, meta.InvalidKeys)

	resolved, _, err = k.Preview(map[string]any{"title": "Hello"})
	require.NoError(t, err)
	assert.Equal(t, String("Hello"), resolved.Get("title"))
}

func TestPanickingValidatorCountsAsFailure(t *testing.T) {
	boom := NewValidator("boom", func(Value) bool { panic("boom") })
	k := New[struct{}]()
	require.NoError(t, k.Define(Field("a", KindNumber, WithValidator(boom))))

	resolved, meta, err := k.Preview(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.True(t, resolved.Get("a").IsEmpty())
	assert.Equal(t, []string{"a"}, meta.InvalidKeys)
}

func TestExprValidator(t *testing.T) {
	validator, err := CompileValidator(NewExprEvaluator(), "value >= 1 && value <= 5")
	require.NoError(t, err)
	assert.Equal(t, "expr", validator.Engine())
	assert.Equal(t, "expr:value >= 1 && value <= 5", validator.Name())

	k := New[struct{}]()
	require.NoError(t, k.Define(Field("rating", KindNumber, WithValidator(validator))))

	resolved, _, err := k.Preview(map[string]any{"rating": 3})
	require.NoError(t, err)
	assert.Equal(t, Number(3), resolved.Get("rating"))

	resolved, meta, err := k.Preview(map[string]any{"rating": 9})
	require.NoError(t, err)
	assert.True(t, resolved.Get("rating").IsEmpty())
	assert.Equal(t, []string{"rating"}, meta.InvalidKeys)
}

func TestExprValidatorNonBooleanResultFails(t *testing.T) {
	validator, err := CompileValidator(NewExprEvaluator(), "value + 1")
	require.NoError(t, err)

	ok, checkErr := validator.check("n", Number(1))
	assert.False(t, ok)
	var evalErr *EvaluationError
	require.ErrorAs(t, checkErr, &evalErr)
	assert.Equal(t, "n", evalErr.Key)
}

func TestExprValidatorSeesKey(t *testing.T) {
	validator, err := CompileValidator(NewExprEvaluator(), `key == "tone" && value != "loud"`)
	require.NoError(t, err)

	ok, err := validator.check("tone", String("soft"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = validator.check("other", String("soft"))
	assert.False(t, ok)
}

func TestCELValidator(t *testing.T) {
	validator, err := CompileValidator(NewCELEvaluator(), "value > 0.0")
	require.NoError(t, err)
	assert.Equal(t, "cel", validator.Engine())

	ok, err := validator.check("n", Number(2))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = validator.check("n", Number(-2))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCELValidatorWithFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	require.NoError(t, registry.Register("isSlug", func(args ...any) (any, error) {
		s, _ := args[0].(string)
		return s != "" && !strings.ContainsAny(s, " /"), nil
	}))

	validator, err := CompileValidator(NewCELEvaluator(CELWithFunctionRegistry(registry)), `call("isSlug", value) == true`)
	require.NoError(t, err)

	ok, err := validator.check("slug", String("hello-world"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = validator.check("slug", String("hello world"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCELCallErrorKeepsFunctionMessage(t *testing.T) {
	registry := NewFunctionRegistry()
	require.NoError(t, registry.Register("quota", func(args ...any) (any, error) {
		return nil, errors.New("quota at 100% exceeded")
	}))

	validator, err := CompileValidator(NewCELEvaluator(CELWithFunctionRegistry(registry)), `call("quota", value) == true`)
	require.NoError(t, err)

	ok, err := validator.check("n", Number(1))
	assert.False(t, ok)
	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "cel", evalErr.Engine)
	assert.Contains(t, err.Error(), "quota at 100% exceeded")
	assert.NotContains(t, err.Error(), "%!")
}

func TestCompileValidatorErrors(t *testing.T) {
	_, err := CompileValidator(nil, "value > 0")
	require.ErrorIs(t, err, ErrNoEvaluator)

	_, err = CompileValidator(NewExprEvaluator(), "")
	require.Error(t, err)

	_, err = CompileValidator(NewCELEvaluator(), "value >")
	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "cel", evalErr.Engine)
}

func TestEvaluatorByName(t *testing.T) {
	for _, engine := range []string{"", "expr", "cel"} {
		evaluator, err := EvaluatorByName(engine, nil, nil)
		require.NoError(t, err, engine)
		assert.NotNil(t, evaluator)
	}

	_, err := EvaluatorByName("lua", nil, nil)
	require.ErrorIs(t, err, ErrNoEvaluator)

	if !jsEvaluatorAvailable() {
		_, err = EvaluatorByName("js", nil, nil)
		require.ErrorIs(t, err, ErrNoEvaluator)
	}
}

type mapCache struct {
	entries map[string]any
	hits    int
}

func (c *mapCache) Get(key string) (any, bool) {
	v, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *mapCache) Set(key string, value any) {
	c.entries[key] = value
}

func TestProgramCacheSharedAcrossEngines(t *testing.T) {
	cache := &mapCache{entries: map[string]any{}}
	exprEval := NewExprEvaluator(ExprWithProgramCache(cache))
	celEval := NewCELEvaluator(CELWithProgramCache(cache))

	_, err := exprEval.Compile("value > 1")
	require.NoError(t, err)
	_, err = celEval.Compile("value > 1")
	require.NoError(t, err)
	assert.Len(t, cache.entries, 2)
	assert.Zero(t, cache.hits)

	result, err := exprEval.Evaluate(RuleContext{Value: 3.0}, "value > 1")
	require.NoError(t, err)
	assert.Equal(t, true, result)
	assert.Equal(t, 1, cache.hits)
}

func TestExprValidatorRegistryFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	require.NoError(t, registry.Register("even", func(args ...any) (any, error) {
		n, _ := args[0].(float64)
		return int(n)%2 == 0, nil
	}))
	evaluator := NewExprEvaluator(ExprWithFunctionRegistry(registry))

	for _, expression := range []string{"even(value)", `call("even", value)`} {
		validator, err := CompileValidator(evaluator, expression)
		require.NoError(t, err, expression)

		ok, err := validator.check("n", Number(4))
		require.NoError(t, err)
		assert.True(t, ok, expression)

		ok, _ = validator.check("n", Number(3))
		assert.False(t, ok, expression)
	}
}
