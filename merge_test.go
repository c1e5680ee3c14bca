package props

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMerge(t *testing.T, base SchemaMap, entries ...Entry) (SchemaMap, []Diagnostic) {
	t.Helper()
	merged, warnings, err := Merge(base, NewSchemaMap(entries...))
	require.NoError(t, err)
	return merged, warnings
}

func TestMergeAddsNewKeysInOrder(t *testing.T) {
	merged, warnings := mustMerge(t, SchemaMap{},
		Field("size", KindString),
		Field("count", KindNumber),
	)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"size", "count"}, merged.Keys())

	merged, _ = mustMerge(t, merged, Field("tone", KindString), Field("size", KindString))
	assert.Equal(t, []string{"size", "count", "tone"}, merged.Keys())
}

func TestMergeRejectsKindConflict(t *testing.T) {
	base, _ := mustMerge(t, SchemaMap{}, Field("size", KindString))

	out, warnings, err := Merge(base, NewSchemaMap(Field("size", KindNumber)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaConflict))
	assert.Nil(t, warnings)

	spec, ok := out.Lookup("size")
	require.True(t, ok)
	assert.Equal(t, KindString, spec.Kind)
}

func TestMergeEmptyBehaviorStrictness(t *testing.T) {
	base, _ := mustMerge(t, SchemaMap{}, Field("a", KindNumber))

	_, _, err := Merge(base, NewSchemaMap(Field("a", KindNumber, WithEmpty(EmptyError))))
	var conflictErr *SchemaConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, []string{"a"}, conflictErr.Keys())
	assert.Equal(t, CodeEmptyStricter, conflictErr.Conflicts[0].Code)

	merged, warnings := mustMerge(t, base, Field("a", KindNumber, WithEmpty(EmptyAccept)))
	require.Len(t, warnings, 1)
	assert.Equal(t, CodeEmptyLooser, warnings[0].Code)
	spec, _ := merged.Lookup("a")
	assert.Equal(t, EmptyAccept, spec.Empty)

	// Omitted keeps the base behavior without a diagnostic.
	merged, warnings = mustMerge(t, merged, Field("a", KindNumber))
	assert.Empty(t, warnings)
	spec, _ = merged.Lookup("a")
	assert.Equal(t, EmptyAccept, spec.Empty)
}

func TestMergeEnumNarrowingRejectedAndSchemaUnchanged(t *testing.T) {
	k := New[struct{}]()
	require.NoError(t, k.Define(Field("mode", KindString, WithEnum("a", "b"))))

	err := k.Define(Field("mode", KindString, WithEnum("a")))
	require.ErrorIs(t, err, ErrSchemaConflict)

	_, err = k.Apply(map[string]any{"mode": "b"}, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, String("b"), k.Get().Get("mode"))
}

func TestMergeEnumWidenedWarns(t *testing.T) {
	base, _ := mustMerge(t, SchemaMap{}, Field("mode", KindString, WithEnum("a", "b")))

	merged, warnings := mustMerge(t, base, Field("mode", KindString, WithEnum("a", "b", "c")))
	require.Len(t, warnings, 1)
	assert.Equal(t, CodeEnumWidened, warnings[0].Code)
	spec, _ := merged.Lookup("mode")
	assert.Len(t, spec.Enum, 3)

	_, warnings = mustMerge(t, merged, Field("mode", KindString))
	assert.Empty(t, warnings, "omitted enum retains base")
}

func TestMergeAddingEnumToUnrestrictedFieldIsNarrowing(t *testing.T) {
	base, _ := mustMerge(t, SchemaMap{}, Field("mode", KindString))
	_, _, err := Merge(base, NewSchemaMap(Field("mode", KindString, WithEnum("a"))))
	require.ErrorIs(t, err, ErrSchemaConflict)
}

func TestMergeRange(t *testing.T) {
	base, _ := mustMerge(t, SchemaMap{}, Field("n", KindNumber, WithRange(Between(0, 10))))

	_, _, err := Merge(base, NewSchemaMap(Field("n", KindNumber, WithRange(Between(1, 10)))))
	require.ErrorIs(t, err, ErrSchemaConflict)

	_, _, err = Merge(base, NewSchemaMap(Field("n", KindNumber, WithRange(AtLeast(0)))))
	require.NoError(t, err)

	merged, warnings := mustMerge(t, base, Field("n", KindNumber, WithRange(Between(-5, 20))))
	require.Len(t, warnings, 1)
	assert.Equal(t, CodeRangeWidened, warnings[0].Code)
	spec, _ := merged.Lookup("n")
	assert.Equal(t, -5.0, *spec.Range.Min)

	_, warnings = mustMerge(t, base, Field("n", KindNumber, WithRange(Between(0, 10))))
	assert.Empty(t, warnings)
}

func TestMergeValidatorIdentity(t *testing.T) {
	positive := NewValidator("positive", func(v Value) bool {
		n, _ := v.AsNumber()
		return n > 0
	})
	rebuilt := NewValidator("positive", func(v Value) bool {
		n, _ := v.AsNumber()
		return n > 0
	})

	base, _ := mustMerge(t, SchemaMap{}, Field("n", KindNumber, WithValidator(positive)))

	_, warnings := mustMerge(t, base, Field("n", KindNumber, WithValidator(positive)))
	assert.Empty(t, warnings)

	kept, warnings := mustMerge(t, base, Field("n", KindNumber))
	assert.Empty(t, warnings, "omitted validator retains base")
	spec, _ := kept.Lookup("n")
	assert.Same(t, positive, spec.Validator)

	_, _, err := Merge(base, NewSchemaMap(Field("n", KindNumber, WithValidator(rebuilt))))
	var conflictErr *SchemaConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, CodeValidatorChanged, conflictErr.Conflicts[0].Code)

	plain, _ := mustMerge(t, SchemaMap{}, Field("n", KindNumber))
	_, _, err = Merge(plain, NewSchemaMap(Field("n", KindNumber, WithValidator(positive))))
	require.ErrorIs(t, err, ErrSchemaConflict)
}

func TestMergeExpressionValidatorsCompareByText(t *testing.T) {
	evaluator := NewExprEvaluator()
	first, err := CompileValidator(evaluator, "value > 0")
	require.NoError(t, err)
	same, err := CompileValidator(evaluator, "value > 0")
	require.NoError(t, err)
	other, err := CompileValidator(evaluator, "value > 1")
	require.NoError(t, err)

	base, _ := mustMerge(t, SchemaMap{}, Field("n", KindNumber, WithValidator(first)))
	_, _, err = Merge(base, NewSchemaMap(Field("n", KindNumber, WithValidator(same))))
	require.NoError(t, err)
	_, _, err = Merge(base, NewSchemaMap(Field("n", KindNumber, WithValidator(other))))
	require.ErrorIs(t, err, ErrSchemaConflict)
}

func TestMergeDefaultOverrideWarns(t *testing.T) {
	base, _ := mustMerge(t, SchemaMap{}, Field("n", KindNumber, WithDefault(1)))

	merged, warnings := mustMerge(t, base, Field("n", KindNumber, WithDefault(2)))
	require.Len(t, warnings, 1)
	assert.Equal(t, CodeDefaultOverridden, warnings[0].Code)
	spec, _ := merged.Lookup("n")
	assert.Equal(t, Number(2), *spec.Default)

	_, warnings = mustMerge(t, base, Field("n", KindNumber, WithDefault(1)))
	assert.Empty(t, warnings)
}

func TestMergeIsAtomicAndReportsEveryConflict(t *testing.T) {
	base, _ := mustMerge(t, SchemaMap{},
		Field("a", KindString),
		Field("b", KindNumber, WithRange(Between(0, 1))),
	)

	out, _, err := Merge(base, NewSchemaMap(
		Field("c", KindBoolean),
		Field("a", KindNumber),
		Field("b", KindNumber, WithRange(Between(0, 0.5))),
	))
	var conflictErr *SchemaConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, []string{"a", "b"}, conflictErr.Keys())
	assert.Contains(t, err.Error(), "a: kind conflict")
	assert.False(t, out.Has("c"), "accepted keys of a rejected batch are not applied")
	assert.Equal(t, []string{"a", "b"}, out.Keys())
}
