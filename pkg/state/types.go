package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	props "github.com/goliatone/go-props"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies the stored defaults of one component for one scope.
type Ref struct {
	Component string
	Scope     props.Scope
}

// Meta is storage-owned metadata used for trace/audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves the defaults partial for a single scope reference.
type Store interface {
	Load(ctx context.Context, ref Ref) (values map[string]any, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, values map[string]any, meta Meta) (Meta, error)
}

// Target receives loaded layers. *props.Kernel satisfies it.
type Target interface {
	Name() string
	PushDefaults(layer props.DefaultsLayer)
}

// Loader orchestrates scoped loads. When Schema is set, Mutate rejects
// values the schema would not accept.
type Loader struct {
	Store  Store
	Schema *props.SchemaMap
}

type Mutator func(values map[string]any) error

func (r Ref) Identifier() (string, error) {
	switch r.Scope.Name {
	case props.ScopeSystem:
		return fmt.Sprintf("system/%s", r.Component), nil
	case props.ScopeTenant, props.ScopeOrg, props.ScopeTeam, props.ScopeUser:
		metadataKey := r.Scope.Name + "_id"
		id, _ := r.Scope.Metadata[metadataKey].(string)
		if id == "" {
			return "", fmt.Errorf("missing metadata key %q for scope %q", metadataKey, r.Scope.Name)
		}
		return fmt.Sprintf("%s/%s/%s", r.Scope.Name, id, r.Component), nil
	default:
		return "", fmt.Errorf("unsupported scope name %q", r.Scope.Name)
	}
}

// Layers loads component defaults for every scope that has a record and
// returns them weakest first. Ties keep the argument order.
func (l Loader) Layers(ctx context.Context, component string, scopes ...props.Scope) ([]props.DefaultsLayer, error) {
	if l.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if component == "" {
		return nil, fmt.Errorf("state: component is required")
	}

	ordered := append([]props.Scope(nil), scopes...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	layers := make([]props.DefaultsLayer, 0, len(ordered))
	for _, scope := range ordered {
		values, meta, ok, err := l.Store.Load(ctx, Ref{Component: component, Scope: scope})
		if err != nil {
			return nil, fmt.Errorf("state: load %q for scope %q: %w", component, scope.Name, err)
		}
		if !ok {
			continue
		}
		layers = append(layers, newLayer(scope, values, meta))
	}
	return layers, nil
}

// Push loads the target's defaults and pushes them weakest first, so the
// strongest scope wins resolution. It returns the pushed layers.
func (l Loader) Push(ctx context.Context, target Target, scopes ...props.Scope) ([]props.DefaultsLayer, error) {
	if target == nil {
		return nil, fmt.Errorf("state: target is required")
	}
	layers, err := l.Layers(ctx, target.Name(), scopes...)
	if err != nil {
		return nil, err
	}
	for _, layer := range layers {
		target.PushDefaults(layer)
	}
	return layers, nil
}

// Mutate loads one record, applies fn, validates the result, then saves it
// and returns the saved record as a layer.
func (l Loader) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) (props.DefaultsLayer, Meta, error) {
	if l.Store == nil {
		return props.DefaultsLayer{}, Meta{}, fmt.Errorf("state: store is required")
	}
	if ref.Component == "" {
		return props.DefaultsLayer{}, Meta{}, fmt.Errorf("state: component is required")
	}
	if ref.Scope.Name == "" {
		return props.DefaultsLayer{}, Meta{}, fmt.Errorf("state: scope name is required")
	}
	if fn == nil {
		return props.DefaultsLayer{}, Meta{}, fmt.Errorf("state: mutator is required")
	}

	values, loadedMeta, ok, err := l.Store.Load(ctx, ref)
	if err != nil {
		return props.DefaultsLayer{}, Meta{}, fmt.Errorf("state: load %q for scope %q: %w", ref.Component, ref.Scope.Name, err)
	}
	if !ok || values == nil {
		values = map[string]any{}
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return props.DefaultsLayer{}, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	if err := fn(values); err != nil {
		return props.DefaultsLayer{}, loadedMeta, err
	}

	if l.Schema != nil {
		if err := ValidateDefaults(*l.Schema, values); err != nil {
			return props.DefaultsLayer{}, loadedMeta, err
		}
	}

	savedMeta, err := l.Store.Save(ctx, ref, values, mergeMeta(loadedMeta, meta))
	if err != nil {
		return props.DefaultsLayer{}, loadedMeta, fmt.Errorf("state: save %q for scope %q: %w", ref.Component, ref.Scope.Name, err)
	}
	return newLayer(ref.Scope, values, savedMeta), savedMeta, nil
}

// ValidateDefaults reports keys the schema does not declare and non-empty
// values that fail their field spec. Empty values are always allowed since
// resolution skips them where they do not apply.
func ValidateDefaults(schema props.SchemaMap, values map[string]any) error {
	var errs []error
	entries := make([]props.Entry, 0, len(values))
	for _, entry := range schema.Entries() {
		if _, ok := values[entry.Key]; !ok {
			continue
		}
		entry.Spec.Empty = props.EmptyAccept
		entry.Spec.Default = nil
		entries = append(entries, entry)
	}
	for key := range values {
		if !schema.Has(key) {
			errs = append(errs, fmt.Errorf("state: key %q is not declared", key))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	probe := props.New[struct{}](props.WithName("state-validate"))
	if err := probe.Define(entries...); err != nil {
		return fmt.Errorf("state: schema: %w", err)
	}
	_, meta, err := probe.Preview(values)
	if err != nil {
		return fmt.Errorf("state: preview: %w", err)
	}
	for _, key := range meta.InvalidKeys {
		errs = append(errs, fmt.Errorf("state: value for %q is invalid", key))
	}
	return errors.Join(errs...)
}

func newLayer(scope props.Scope, values map[string]any, meta Meta) props.DefaultsLayer {
	opts := []props.LayerOption{props.WithLayerScope(scope)}
	if meta.SnapshotID != "" {
		opts = append(opts, props.WithSnapshotID(meta.SnapshotID))
	}
	return props.NewDefaultsLayer(values, opts...)
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
