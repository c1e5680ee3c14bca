package props

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeListsFieldsInOrder(t *testing.T) {
	positive := NewValidator("positive", func(v Value) bool {
		n, _ := v.AsNumber()
		return n > 0
	})
	schema := NewSchemaMap(
		Field("tone", KindString, WithEnum("info", "warn"), WithDefault("info")),
		Field("rating", KindNumber, WithRange(AtLeast(1)), WithValidator(positive)),
		Field("subtitle", KindString, WithEmpty(EmptyAccept)),
	)

	descriptors := Describe(schema)
	require.Len(t, descriptors, 3)

	assert.Equal(t, "tone", descriptors[0].Key)
	assert.Equal(t, "string", descriptors[0].Kind)
	assert.Equal(t, []Value{String("info"), String("warn")}, descriptors[0].Enum)
	assert.Equal(t, "fallback", descriptors[0].Empty)
	require.NotNil(t, descriptors[0].Default)
	assert.Equal(t, String("info"), *descriptors[0].Default)

	assert.Equal(t, "number", descriptors[1].Kind)
	require.NotNil(t, descriptors[1].Min)
	assert.Equal(t, 1.0, *descriptors[1].Min)
	assert.Nil(t, descriptors[1].Max)
	assert.Equal(t, "positive", descriptors[1].Validator)

	assert.Equal(t, "accept", descriptors[2].Empty)
	assert.Nil(t, descriptors[2].Default)
}

func TestDefaultSchemaGenerator(t *testing.T) {
	schema := NewSchemaMap(Field("open", KindBoolean, WithDefault(false)))

	doc, err := DefaultSchemaGenerator().Generate(schema)
	require.NoError(t, err)
	assert.Equal(t, SchemaFormatDescriptors, doc.Format)

	data, err := json.Marshal(doc.Document)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"key":"open","kind":"boolean","empty":"fallback","default":false}]`, string(data))
}
