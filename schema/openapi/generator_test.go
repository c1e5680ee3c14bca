package openapi

import (
	"encoding/json"
	"math"
	"sync"
	"testing"

	props "github.com/goliatone/go-props"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardSchema(t *testing.T) props.SchemaMap {
	t.Helper()
	validator, err := props.CompileValidator(props.NewExprEvaluator(), "value <= 5")
	require.NoError(t, err)

	return props.NewSchemaMap(
		props.Field("tone", props.KindString, props.WithEnum("info", "warn"), props.WithDefault("info")),
		props.Field("elevation", props.KindNumber,
			props.WithRange(props.Between(0, 5)),
			props.WithEmpty(props.EmptyError),
			props.WithValidator(validator),
		),
		props.Field("subtitle", props.KindString, props.WithEmpty(props.EmptyAccept)),
		props.Field("open", props.KindBoolean),
		props.Field("meta", props.KindObject),
		props.Field("extra", props.KindAny),
	)
}

func generate(t *testing.T, schema props.SchemaMap, opts ...GeneratorOption) map[string]any {
	t.Helper()
	doc, err := NewGenerator(opts...).Generate(schema)
	require.NoError(t, err)
	assert.Equal(t, props.SchemaFormatOpenAPI, doc.Format)

	document, ok := doc.Document.(map[string]any)
	require.True(t, ok, "document is %T", doc.Document)
	require.NoError(t, validateDocument(document))
	return document
}

func requestSchema(t *testing.T, document map[string]any) map[string]any {
	t.Helper()
	paths := document["paths"].(map[string]any)
	operation := paths["/props"].(map[string]any)["post"].(map[string]any)
	content := operation["requestBody"].(map[string]any)["content"].(map[string]any)
	return content["application/json"].(map[string]any)["schema"].(map[string]any)
}

func TestNewGeneratorOptions(t *testing.T) {
	custom := NewGenerator(
		WithOpenAPIVersion("3.1.0"),
		WithInfo("Card Props", "2.0.0"),
		WithDescription("card inputs"),
		WithOperation("PUT", "/cards", "updateCard"),
		WithSummary("Update card"),
		WithContentType("application/x-www-form-urlencoded"),
		WithResponse("201", "Created"),
		WithRootComponent("CardProps"),
	)

	internal, ok := custom.(generator)
	require.True(t, ok)

	cfg := internal.config
	assert.Equal(t, "3.1.0", cfg.openAPIVersion)
	assert.Equal(t, openapiInfo{Title: "Card Props", Version: "2.0.0", Description: "card inputs"}, cfg.info)
	assert.Equal(t, operationConfig{Path: "/cards", Method: "put", OperationID: "updateCard", Summary: "Update card"}, cfg.operation)
	assert.Equal(t, "application/x-www-form-urlencoded", cfg.contentType)
	assert.Equal(t, "Created", cfg.responses["201"].Description)
	assert.Contains(t, cfg.responses, "204", "default response stays configured")
	assert.Equal(t, "CardProps", cfg.rootComponent)
	assert.True(t, cfg.extensions)

	blank := NewGenerator(WithInfo(" ", ""), WithOperation("", "", "")).(generator).config
	assert.Equal(t, defaultGeneratorConfig().info, blank.info)
	assert.Equal(t, defaultGeneratorConfig().operation, blank.operation)
}

func TestGenerateWithoutExtensions(t *testing.T) {
	document := generate(t, cardSchema(t), WithoutExtensions())

	root := requestSchema(t, document)
	assert.NotContains(t, root, extensionOrder)

	properties := root["properties"].(map[string]any)
	elevation := properties["elevation"].(map[string]any)
	assert.NotContains(t, elevation, extensionEmpty)
	assert.NotContains(t, elevation, extensionValidator)
	assert.Equal(t, true, properties["subtitle"].(map[string]any)["nullable"])
}

func TestGenerateFieldSchemas(t *testing.T) {
	document := generate(t, cardSchema(t))

	assert.Equal(t, "3.0.3", document["openapi"])
	assert.NotContains(t, document, "components")

	root := requestSchema(t, document)
	assert.Equal(t, "object", root["type"])
	assert.Equal(t, []string{"tone", "elevation", "subtitle", "open", "meta", "extra"}, root[extensionOrder])

	properties := root["properties"].(map[string]any)

	tone := properties["tone"].(map[string]any)
	assert.Equal(t, "string", tone["type"])
	assert.Equal(t, []any{"info", "warn"}, tone["enum"])
	assert.Equal(t, "info", tone["default"])
	assert.Equal(t, "fallback", tone[extensionEmpty])

	elevation := properties["elevation"].(map[string]any)
	assert.Equal(t, "number", elevation["type"])
	assert.Equal(t, 0.0, elevation["minimum"])
	assert.Equal(t, 5.0, elevation["maximum"])
	assert.Equal(t, "error", elevation[extensionEmpty])
	assert.Equal(t, "expr:value <= 5", elevation[extensionValidator])

	subtitle := properties["subtitle"].(map[string]any)
	assert.Equal(t, true, subtitle["nullable"])
	assert.Equal(t, "accept", subtitle[extensionEmpty])

	assert.Equal(t, "boolean", properties["open"].(map[string]any)["type"])
	assert.Contains(t, properties["meta"], "oneOf")
	assert.NotContains(t, properties["extra"], "type")
}

func TestGenerateNullableUnionFrom31(t *testing.T) {
	document := generate(t, cardSchema(t), WithOpenAPIVersion("3.1.0"))

	properties := requestSchema(t, document)["properties"].(map[string]any)
	subtitle := properties["subtitle"].(map[string]any)
	assert.Equal(t, []any{"string", "null"}, subtitle["type"])
	assert.NotContains(t, subtitle, "nullable")
}

func TestGenerateRootComponent(t *testing.T) {
	document := generate(t, cardSchema(t), WithRootComponent("CardProps"))

	assert.Equal(t, map[string]any{"$ref": "#/components/schemas/CardProps"}, requestSchema(t, document))

	schemas := document["components"].(map[string]any)["schemas"].(map[string]any)
	require.Contains(t, schemas, "CardProps")
	assert.Contains(t, schemas["CardProps"].(map[string]any)["properties"], "tone")
}

func TestGenerateEmptySchema(t *testing.T) {
	document := generate(t, props.NewSchemaMap())

	root := requestSchema(t, document)
	assert.Empty(t, root["properties"])
}

func TestGenerateRejectsNonFiniteLiterals(t *testing.T) {
	schema := props.NewSchemaMap(
		props.Field("ratio", props.KindNumber, props.WithDefault(math.Inf(1))),
	)
	_, err := NewGenerator().Generate(schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "ratio" default`)
}

func TestGeneratedDocumentIsJSON(t *testing.T) {
	document := generate(t, cardSchema(t), WithRootComponent("CardProps"))

	data, err := json.Marshal(document)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"x-empty-behavior":"error"`)
}

func TestGeneratorConcurrentAccess(t *testing.T) {
	gen := NewGenerator()
	schema := cardSchema(t)

	const goroutines = 16
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gen.Generate(schema)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestValidateDocument(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{
			"openapi": "3.0.3",
			"info":    map[string]any{"title": "t", "version": "1"},
			"paths": map[string]any{
				"/props": map[string]any{
					"post": map[string]any{
						"operationId": "op",
						"requestBody": map[string]any{"content": map[string]any{"application/json": map[string]any{}}},
						"responses":   map[string]any{},
					},
				},
			},
		}
	}
	require.NoError(t, validateDocument(valid()))

	cases := map[string]func(map[string]any){
		"no version": func(d map[string]any) { delete(d, "openapi") },
		"no info":    func(d map[string]any) { delete(d, "info") },
		"no title":   func(d map[string]any) { d["info"] = map[string]any{"version": "1"} },
		"no paths":   func(d map[string]any) { d["paths"] = map[string]any{} },
		"no operations": func(d map[string]any) {
			d["paths"] = map[string]any{"/props": map[string]any{}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			doc := valid()
			mutate(doc)
			assert.Error(t, validateDocument(doc))
		})
	}
	assert.Error(t, validateDocument(nil))
}
