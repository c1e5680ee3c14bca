package props

import (
	"encoding/json"
	"fmt"
)

// SourceKind names where a resolved value came from.
type SourceKind uint8

const (
	SourceRaw SourceKind = iota
	SourceAcceptedEmpty
	SourceLastValid
	SourceDefaults
	SourceDeclaredDefault
	SourceEmpty
)

func (s SourceKind) String() string {
	switch s {
	case SourceRaw:
		return "raw"
	case SourceAcceptedEmpty:
		return "accepted_empty"
	case SourceLastValid:
		return "last_valid"
	case SourceDefaults:
		return "defaults"
	case SourceDeclaredDefault:
		return "declared_default"
	case SourceEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SourceKind) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SourceKind) UnmarshalText(text []byte) error {
	for candidate := SourceRaw; candidate <= SourceEmpty; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("props: unknown source %q", text)
}

// Trace captures per-field provenance for one resolution pass, in
// declaration order.
type Trace struct {
	Fields []FieldTrace `json:"fields"`
}

// FieldTrace details how a single declared field was resolved.
type FieldTrace struct {
	Key        string     `json:"key"`
	State      string     `json:"state"`
	Source     SourceKind `json:"source"`
	Scope      *Scope     `json:"scope,omitempty"`
	SnapshotID string     `json:"snapshot_id,omitempty"`
	Value      Value      `json:"value"`
}

// Field returns the trace entry for key.
func (t Trace) Field(key string) (FieldTrace, bool) {
	for _, field := range t.Fields {
		if field.Key == key {
			return field, true
		}
	}
	return FieldTrace{}, false
}

// ToJSON serialises the trace into JSON for logging or tooling.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

func (o fieldOutcome) trace(key string) FieldTrace {
	entry := FieldTrace{
		Key:    key,
		State:  o.state.String(),
		Source: o.source,
		Value:  o.value,
	}
	if o.layer != nil {
		entry.SnapshotID = o.layer.SnapshotID
		if !o.layer.Scope.isZero() {
			scope := o.layer.Scope.clone()
			entry.Scope = &scope
		}
	}
	return entry
}
