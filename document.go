package props

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Document is a parsed schema file: the component name, its fields in file
// order and any defaults layers listed weakest first.
type Document struct {
	Component string
	Schema    SchemaMap
	Defaults  []DefaultsLayer
}

// DocumentOption configures document parsing.
type DocumentOption func(*documentConfig)

type documentConfig struct {
	cache      ProgramCache
	registry   *FunctionRegistry
	evaluators map[string]Evaluator
	validators map[string]*Validator
}

// WithDocumentProgramCache shares a program cache across compiled validators.
func WithDocumentProgramCache(cache ProgramCache) DocumentOption {
	return func(cfg *documentConfig) {
		cfg.cache = cache
	}
}

// WithDocumentFunctionRegistry exposes registry functions to validator
// expressions. Without it documents see DefaultFunctionRegistry.
func WithDocumentFunctionRegistry(registry *FunctionRegistry) DocumentOption {
	return func(cfg *documentConfig) {
		cfg.registry = registry
	}
}

// WithDocumentEvaluator overrides the evaluator used for engine.
func WithDocumentEvaluator(engine string, evaluator Evaluator) DocumentOption {
	return func(cfg *documentConfig) {
		if cfg.evaluators == nil {
			cfg.evaluators = map[string]Evaluator{}
		}
		cfg.evaluators[engine] = evaluator
	}
}

// WithNamedValidator makes a Go validator available to documents as
// `validator: {name: ...}`. The same *Validator is reused on every parse so
// redefinitions stay compatible.
func WithNamedValidator(v *Validator) DocumentOption {
	return func(cfg *documentConfig) {
		if v == nil {
			return
		}
		if cfg.validators == nil {
			cfg.validators = map[string]*Validator{}
		}
		cfg.validators[v.Name()] = v
	}
}

type fileDocument struct {
	Component string          `yaml:"component"`
	Fields    yaml.Node       `yaml:"fields"`
	Defaults  []layerDocument `yaml:"defaults"`
}

type layerDocument struct {
	Scope struct {
		Name     string         `yaml:"name"`
		Label    string         `yaml:"label"`
		Priority int            `yaml:"priority"`
		Metadata map[string]any `yaml:"metadata"`
	} `yaml:"scope"`
	SnapshotID string         `yaml:"snapshot_id"`
	Values     map[string]any `yaml:"values"`
}

type fieldDocument struct {
	Kind      string             `mapstructure:"kind"`
	Empty     string             `mapstructure:"empty"`
	Enum      []any              `mapstructure:"enum"`
	Range     *rangeDocument     `mapstructure:"range"`
	Validator *validatorDocument `mapstructure:"validator"`
	Default   any                `mapstructure:"default"`
}

type rangeDocument struct {
	Min *float64 `mapstructure:"min"`
	Max *float64 `mapstructure:"max"`
}

type validatorDocument struct {
	Name   string `mapstructure:"name"`
	Engine string `mapstructure:"engine"`
	Expr   string `mapstructure:"expr"`
}

// ParseSchemaYAML parses only the fields of a schema document.
func ParseSchemaYAML(data []byte, opts ...DocumentOption) (SchemaMap, error) {
	doc, err := ParseDocument(data, opts...)
	if err != nil {
		return SchemaMap{}, err
	}
	return doc.Schema, nil
}

// ParseDocument parses a YAML (or JSON) schema document. Fields keep the
// order they appear in the file; a scalar field value is shorthand for its
// kind. A field with `default: null` declares an Empty default; omitting the
// key declares none.
func ParseDocument(data []byte, opts ...DocumentOption) (Document, error) {
	cfg := documentConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.registry == nil {
		cfg.registry = DefaultFunctionRegistry()
	}

	var file fileDocument
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Document{}, fmt.Errorf("props: parse schema document: %w", err)
	}

	entries, err := cfg.fieldEntries(&file.Fields)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		Component: strings.TrimSpace(file.Component),
		Schema:    NewSchemaMap(entries...),
	}
	for i, layer := range file.Defaults {
		layerOpts := []LayerOption{WithSnapshotID(layer.SnapshotID)}
		if layer.Scope.Name != "" {
			layerOpts = append(layerOpts, WithLayerScope(NewScope(layer.Scope.Name, layer.Scope.Priority,
				WithScopeLabel(layer.Scope.Label),
				WithScopeMetadata(layer.Scope.Metadata),
			)))
		}
		if layer.Values == nil {
			return Document{}, fmt.Errorf("props: defaults[%d]: values are required", i)
		}
		doc.Defaults = append(doc.Defaults, NewDefaultsLayer(layer.Values, layerOpts...))
	}
	return doc, nil
}

func (cfg *documentConfig) fieldEntries(node *yaml.Node) ([]Entry, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("props: fields must be a mapping (line %d)", node.Line)
	}

	entries := make([]Entry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]
		if value.Kind == yaml.ScalarNode && value.Tag != "!!null" {
			value = &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Value: "kind"},
				{Kind: yaml.ScalarNode, Value: value.Value},
			}}
		}
		var raw map[string]any
		if err := value.Decode(&raw); err != nil {
			return nil, fmt.Errorf("props: field %q: %w", key, err)
		}
		spec, err := cfg.fieldSpec(key, raw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: key, Spec: spec})
	}
	return entries, nil
}

func (cfg *documentConfig) fieldSpec(key string, raw map[string]any) (FieldSpec, error) {
	var doc fieldDocument
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &doc,
	})
	if err != nil {
		return FieldSpec{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return FieldSpec{}, fmt.Errorf("props: field %q: %w", key, err)
	}

	kind, ok := ParseFieldKind(strings.TrimSpace(doc.Kind))
	if !ok {
		return FieldSpec{}, fmt.Errorf("props: field %q: unknown kind %q", key, doc.Kind)
	}
	empty, ok := ParseEmptyBehavior(strings.TrimSpace(doc.Empty))
	if !ok {
		return FieldSpec{}, fmt.Errorf("props: field %q: unknown empty behavior %q", key, doc.Empty)
	}

	spec := FieldSpec{Kind: kind, Empty: empty}
	if doc.Enum != nil {
		WithEnum(doc.Enum...)(&spec)
	}
	if doc.Range != nil {
		spec.Range = &Range{Min: doc.Range.Min, Max: doc.Range.Max}
	}
	if _, has := raw["default"]; has {
		WithDefault(doc.Default)(&spec)
	}
	if doc.Validator != nil {
		validator, err := cfg.validator(*doc.Validator)
		if err != nil {
			return FieldSpec{}, fmt.Errorf("props: field %q: %w", key, err)
		}
		spec.Validator = validator
	}
	return spec, nil
}

func (cfg *documentConfig) validator(doc validatorDocument) (*Validator, error) {
	if name := strings.TrimSpace(doc.Name); name != "" {
		if v, ok := cfg.validators[name]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("unknown validator %q", name)
	}
	if strings.TrimSpace(doc.Expr) == "" {
		return nil, errors.New("validator needs a name or an expr")
	}
	engine := strings.TrimSpace(doc.Engine)
	evaluator, ok := cfg.evaluators[engine]
	if !ok {
		var err error
		evaluator, err = EvaluatorByName(engine, cfg.cache, cfg.registry)
		if err != nil {
			return nil, err
		}
		if cfg.evaluators == nil {
			cfg.evaluators = map[string]Evaluator{}
		}
		cfg.evaluators[engine] = evaluator
	}
	return CompileValidator(evaluator, doc.Expr)
}
