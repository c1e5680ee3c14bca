package props

import (
	"math"
	"slices"
)

// FieldKind is the declared kind of a field.
type FieldKind uint8

const (
	KindAny FieldKind = iota
	KindBoolean
	KindString
	KindNumber
	KindObject
)

func (k FieldKind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// ParseFieldKind converts a textual kind. The second return value is false for
// unrecognised input.
func ParseFieldKind(value string) (FieldKind, bool) {
	switch value {
	case "", "any":
		return KindAny, true
	case "boolean", "bool":
		return KindBoolean, true
	case "string":
		return KindString, true
	case "number":
		return KindNumber, true
	case "object":
		return KindObject, true
	default:
		return KindAny, false
	}
}

// EmptyBehavior selects how a present-but-empty input is resolved.
// EmptyUnset is the zero value and means the declaration omitted it; it
// resolves as EmptyFallback.
type EmptyBehavior uint8

const (
	EmptyUnset EmptyBehavior = iota
	EmptyAccept
	EmptyFallback
	EmptyError
)

func (e EmptyBehavior) String() string {
	switch e {
	case EmptyAccept:
		return "accept"
	case EmptyFallback:
		return "fallback"
	case EmptyError:
		return "error"
	default:
		return "unset"
	}
}

// ParseEmptyBehavior converts a textual behavior. An empty string yields
// EmptyUnset.
func ParseEmptyBehavior(value string) (EmptyBehavior, bool) {
	switch value {
	case "":
		return EmptyUnset, true
	case "accept":
		return EmptyAccept, true
	case "fallback":
		return EmptyFallback, true
	case "error":
		return EmptyError, true
	default:
		return EmptyUnset, false
	}
}

// Effective maps EmptyUnset to EmptyFallback.
func (e EmptyBehavior) Effective() EmptyBehavior {
	if e == EmptyUnset {
		return EmptyFallback
	}
	return e
}

// rank orders behaviors by strictness: accept < fallback < error.
func (e EmptyBehavior) rank() int {
	switch e.Effective() {
	case EmptyAccept:
		return 0
	case EmptyError:
		return 2
	default:
		return 1
	}
}

// Range bounds a numeric field. A nil bound is unbounded on that side.
type Range struct {
	Min *float64
	Max *float64
}

// Between builds a closed range.
func Between(min, max float64) *Range {
	return &Range{Min: &min, Max: &max}
}

// AtLeast builds a range with only a lower bound.
func AtLeast(min float64) *Range {
	return &Range{Min: &min}
}

// AtMost builds a range with only an upper bound.
func AtMost(max float64) *Range {
	return &Range{Max: &max}
}

func (r *Range) bounds() (float64, float64) {
	lo, hi := math.Inf(-1), math.Inf(1)
	if r == nil {
		return lo, hi
	}
	if r.Min != nil {
		lo = *r.Min
	}
	if r.Max != nil {
		hi = *r.Max
	}
	return lo, hi
}

// covers reports whether r allows every value other allows.
func (r *Range) covers(other *Range) bool {
	lo, hi := r.bounds()
	olo, ohi := other.bounds()
	return lo <= olo && hi >= ohi
}

func (r *Range) contains(n float64) bool {
	lo, hi := r.bounds()
	return n >= lo && n <= hi
}

func (r *Range) clone() *Range {
	if r == nil {
		return nil
	}
	out := &Range{}
	if r.Min != nil {
		v := *r.Min
		out.Min = &v
	}
	if r.Max != nil {
		v := *r.Max
		out.Max = &v
	}
	return out
}

// FieldSpec declares one field. Enum literals are compared by their text form.
type FieldSpec struct {
	Kind      FieldKind
	Empty     EmptyBehavior
	Enum      []Value
	Range     *Range
	Validator *Validator
	Default   *Value
}

// FieldOption configures a FieldSpec.
type FieldOption func(*FieldSpec)

// WithEmpty sets the empty behavior explicitly.
func WithEmpty(behavior EmptyBehavior) FieldOption {
	return func(spec *FieldSpec) {
		spec.Empty = behavior
	}
}

// WithEnum restricts the field to the given literals.
func WithEnum(literals ...any) FieldOption {
	return func(spec *FieldSpec) {
		spec.Enum = make([]Value, 0, len(literals))
		for _, literal := range literals {
			spec.Enum = append(spec.Enum, ValueOf(literal))
		}
	}
}

// WithRange bounds a numeric field.
func WithRange(r *Range) FieldOption {
	return func(spec *FieldSpec) {
		spec.Range = r.clone()
	}
}

// WithValidator attaches a custom validator.
func WithValidator(v *Validator) FieldOption {
	return func(spec *FieldSpec) {
		spec.Validator = v
	}
}

// WithDefault declares the field default. A nil value declares an Empty
// default, which is distinct from declaring none.
func WithDefault(value any) FieldOption {
	return func(spec *FieldSpec) {
		v := ValueOf(value)
		spec.Default = &v
	}
}

// Spec builds a FieldSpec of kind with the given options applied.
func Spec(kind FieldKind, opts ...FieldOption) FieldSpec {
	spec := FieldSpec{Kind: kind}
	for _, opt := range opts {
		if opt != nil {
			opt(&spec)
		}
	}
	return spec
}

func (s FieldSpec) clone() FieldSpec {
	out := s
	if s.Enum != nil {
		out.Enum = slices.Clone(s.Enum)
	}
	out.Range = s.Range.clone()
	if s.Default != nil {
		v := *s.Default
		out.Default = &v
	}
	return out
}

// Entry pairs a field name with its spec for ordered declaration.
type Entry struct {
	Key  string
	Spec FieldSpec
}

// Field builds an Entry.
func Field(key string, kind FieldKind, opts ...FieldOption) Entry {
	return Entry{Key: key, Spec: Spec(kind, opts...)}
}

// SchemaMap is an ordered, copy-on-write mapping of field name to FieldSpec.
// The zero value is an empty schema.
type SchemaMap struct {
	keys  []string
	specs map[string]FieldSpec
}

// NewSchemaMap builds a schema from entries in order. A repeated key keeps
// its first position and its last spec.
func NewSchemaMap(entries ...Entry) SchemaMap {
	out := SchemaMap{specs: make(map[string]FieldSpec, len(entries))}
	for _, entry := range entries {
		if _, exists := out.specs[entry.Key]; !exists {
			out.keys = append(out.keys, entry.Key)
		}
		out.specs[entry.Key] = entry.Spec.clone()
	}
	return out
}

// Len returns the number of declared fields.
func (m SchemaMap) Len() int { return len(m.keys) }

// Keys returns field names in declaration order.
func (m SchemaMap) Keys() []string { return slices.Clone(m.keys) }

// Has reports whether key is declared.
func (m SchemaMap) Has(key string) bool {
	_, ok := m.specs[key]
	return ok
}

// Lookup returns a copy of the spec for key.
func (m SchemaMap) Lookup(key string) (FieldSpec, bool) {
	spec, ok := m.specs[key]
	if !ok {
		return FieldSpec{}, false
	}
	return spec.clone(), true
}

// Entries returns the schema as ordered entries.
func (m SchemaMap) Entries() []Entry {
	out := make([]Entry, 0, len(m.keys))
	for _, key := range m.keys {
		out = append(out, Entry{Key: key, Spec: m.specs[key].clone()})
	}
	return out
}

func (m SchemaMap) spec(key string) FieldSpec {
	return m.specs[key]
}

func (m SchemaMap) clone() SchemaMap {
	out := SchemaMap{
		keys:  slices.Clone(m.keys),
		specs: make(map[string]FieldSpec, len(m.specs)),
	}
	for key, spec := range m.specs {
		out.specs[key] = spec
	}
	return out
}

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flattened field descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents OpenAPI-compatible JSON Schema documents.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Implementations must ensure Document is JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// SchemaGenerator transforms a declared schema into a document for tooling.
type SchemaGenerator interface {
	Generate(schema SchemaMap) (SchemaDocument, error)
}
