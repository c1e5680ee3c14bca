package openapi

import (
	props "github.com/goliatone/go-props"
)

type generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI schema generator for declared props.
func NewGenerator(opts ...GeneratorOption) props.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{config: cfg}
}

func (g generator) Generate(schema props.SchemaMap) (props.SchemaDocument, error) {
	root, err := buildPropsSchema(schema, g.config)
	if err != nil {
		return props.SchemaDocument{}, err
	}

	document, err := newOpenAPIDocumentBuilder(g.config, root).build()
	if err != nil {
		return props.SchemaDocument{}, err
	}
	return props.SchemaDocument{
		Format:   props.SchemaFormatOpenAPI,
		Document: document,
	}, nil
}
