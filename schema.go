package props

// FieldDescriptor is the flat, JSON-friendly description of one declared
// field.
type FieldDescriptor struct {
	Key       string   `json:"key"`
	Kind      string   `json:"kind"`
	Empty     string   `json:"empty"`
	Enum      []Value  `json:"enum,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Validator string   `json:"validator,omitempty"`
	Default   *Value   `json:"default,omitempty"`
}

// DefaultSchemaGenerator returns the built-in descriptor-based schema
// generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(schema SchemaMap) (SchemaDocument, error) {
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: Describe(schema),
	}, nil
}

// Describe lists a descriptor per field in declaration order. Unset empty
// behavior is reported as its effective value.
func Describe(schema SchemaMap) []FieldDescriptor {
	descriptors := make([]FieldDescriptor, 0, schema.Len())
	for _, entry := range schema.Entries() {
		spec := entry.Spec
		descriptor := FieldDescriptor{
			Key:       entry.Key,
			Kind:      spec.Kind.String(),
			Empty:     spec.Empty.Effective().String(),
			Enum:      spec.Enum,
			Validator: spec.Validator.Name(),
			Default:   spec.Default,
		}
		if spec.Range != nil {
			descriptor.Min, descriptor.Max = spec.Range.Min, spec.Range.Max
		}
		descriptors = append(descriptors, descriptor)
	}
	return descriptors
}
