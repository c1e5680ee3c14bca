package props

import (
	"maps"
	"slices"
	"strconv"

	"github.com/google/uuid"
)

// Well-known scope names, weakest first. pkg/state derives storage keys from
// them; other names are allowed on the kernel.
const (
	ScopeSystem = "system"
	ScopeTenant = "tenant"
	ScopeOrg    = "org"
	ScopeTeam   = "team"
	ScopeUser   = "user"
)

// Scope names the origin of a defaults layer. Priority orders layers loaded
// in bulk (higher is stronger); on the kernel the newest layer always wins.
type Scope struct {
	Name     string
	Label    string
	Priority int
	Metadata map[string]any
}

type ScopeOption func(*Scope)

func WithScopeLabel(label string) ScopeOption {
	return func(s *Scope) {
		s.Label = label
	}
}

// WithScopeMetadata copies metadata onto the scope. Repeated calls merge.
func WithScopeMetadata(metadata map[string]any) ScopeOption {
	return func(s *Scope) {
		if len(metadata) == 0 {
			return
		}
		if s.Metadata == nil {
			s.Metadata = make(map[string]any, len(metadata))
		}
		maps.Copy(s.Metadata, metadata)
	}
}

func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	scope := Scope{Name: name, Priority: priority}
	for _, opt := range opts {
		if opt != nil {
			opt(&scope)
		}
	}
	return scope
}

// String renders name:priority, with the label in parentheses when set.
func (s Scope) String() string {
	out := s.Name + ":" + strconv.Itoa(s.Priority)
	if s.Label != "" {
		out += " (" + s.Label + ")"
	}
	return out
}

func (s Scope) clone() Scope {
	s.Metadata = maps.Clone(s.Metadata)
	return s
}

func (s Scope) isZero() bool {
	return s.Name == "" && s.Label == "" && s.Priority == 0 && len(s.Metadata) == 0
}

// DefaultsLayer is one partial defaults map pushed with SetDefaults.
type DefaultsLayer struct {
	Scope      Scope
	SnapshotID string
	keys       []string
	values     map[string]Value
}

// LayerOption configures optional metadata for a defaults layer.
type LayerOption func(*DefaultsLayer)

// WithLayerScope records where the layer came from.
func WithLayerScope(scope Scope) LayerOption {
	return func(layer *DefaultsLayer) {
		layer.Scope = scope.clone()
	}
}

// WithSnapshotID sets the snapshot identifier used for auditing. Layers pushed
// without one get a random UUID.
func WithSnapshotID(id string) LayerOption {
	return func(layer *DefaultsLayer) {
		layer.SnapshotID = id
	}
}

// NewDefaultsLayer converts a partial map into a layer. Values go through
// ValueOf; nil entries become explicit Empty defaults.
func NewDefaultsLayer(partial map[string]any, opts ...LayerOption) DefaultsLayer {
	layer := DefaultsLayer{values: make(map[string]Value, len(partial))}
	for key, value := range partial {
		layer.keys = append(layer.keys, key)
		layer.values[key] = ValueOf(value)
	}
	slices.Sort(layer.keys)
	for _, opt := range opts {
		if opt != nil {
			opt(&layer)
		}
	}
	if layer.SnapshotID == "" {
		layer.SnapshotID = uuid.NewString()
	}
	return layer
}

// Lookup returns the layer's value for key.
func (l DefaultsLayer) Lookup(key string) (Value, bool) {
	v, ok := l.values[key]
	return v, ok
}

// Keys returns the keys the layer provides, sorted.
func (l DefaultsLayer) Keys() []string {
	return slices.Clone(l.keys)
}

func (l DefaultsLayer) clone() DefaultsLayer {
	return DefaultsLayer{
		Scope:      l.Scope.clone(),
		SnapshotID: l.SnapshotID,
		keys:       slices.Clone(l.keys),
		values:     maps.Clone(l.values),
	}
}
