package props

import (
	"math"
	"slices"

	"github.com/rs/zerolog"
)

// InputState classifies one raw entry against its field spec.
type InputState uint8

const (
	StateMissing InputState = iota
	StateProvidedEmpty
	StateProvidedValid
	StateProvidedInvalid
)

func (s InputState) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StateProvidedEmpty:
		return "provided_empty"
	case StateProvidedValid:
		return "provided_valid"
	case StateProvidedInvalid:
		return "provided_invalid"
	default:
		return "unknown"
	}
}

func (s InputState) describe() string {
	switch s {
	case StateProvidedEmpty:
		return "empty"
	case StateProvidedInvalid:
		return "invalid"
	default:
		return "missing"
	}
}

// ResolveMeta summarises one resolution pass. Key lists follow declaration
// order.
type ResolveMeta struct {
	ProvidedKeys      []string
	EmptyKeys         []string
	InvalidKeys       []string
	UsedFallbackKeys  []string
	AcceptedEmptyKeys []string
	Trace             Trace
}

type fallbackMode uint8

const (
	modeAny fallbackMode = iota
	modeNonEmpty
)

// resolutionState is the mutable per-kernel record the resolver reads from.
// Newer defaults layers sit at the end of the slice.
type resolutionState struct {
	defaults  []DefaultsLayer
	lastValid map[string]Value
}

func newResolutionState() *resolutionState {
	return &resolutionState{lastValid: map[string]Value{}}
}

func (s *resolutionState) pushDefaults(layer DefaultsLayer) {
	s.defaults = append(s.defaults, layer)
}

func (s *resolutionState) commit(updates map[string]Value) {
	if s.lastValid == nil {
		s.lastValid = map[string]Value{}
	}
	for key, value := range updates {
		s.lastValid[key] = value
	}
}

func (s *resolutionState) reset() {
	s.defaults = nil
	s.lastValid = map[string]Value{}
}

// resolver runs against a resolutionState without mutating it. Every non-empty
// value it settles on, raw or taken from defaults, is staged for the last-valid
// cache and returned so a failed pass leaves the state untouched.
type resolver struct {
	state  *resolutionState
	logger zerolog.Logger
}

type passResult struct {
	resolved Snapshot
	meta     ResolveMeta
	updates  map[string]Value
}

type fieldOutcome struct {
	value        Value
	state        InputState
	source       SourceKind
	layer        *DefaultsLayer
	usedFallback bool
	accepted     bool
	cache        bool
}

// pass resolves every declared field of schema against raw.
func (r resolver) pass(schema SchemaMap, raw Snapshot) (passResult, error) {
	out := passResult{
		updates: map[string]Value{},
	}
	keys := schema.Keys()
	values := make(map[string]Value, len(keys))
	trace := Trace{Fields: make([]FieldTrace, 0, len(keys))}

	for _, key := range keys {
		spec := schema.spec(key)
		input, present := raw.Lookup(key)
		outcome, err := r.resolveField(key, spec, input, present)
		if err != nil {
			return passResult{}, err
		}

		if present {
			out.meta.ProvidedKeys = append(out.meta.ProvidedKeys, key)
		}
		switch outcome.state {
		case StateProvidedEmpty:
			out.meta.EmptyKeys = append(out.meta.EmptyKeys, key)
		case StateProvidedInvalid:
			out.meta.InvalidKeys = append(out.meta.InvalidKeys, key)
		}
		if outcome.usedFallback {
			out.meta.UsedFallbackKeys = append(out.meta.UsedFallbackKeys, key)
		}
		if outcome.accepted {
			out.meta.AcceptedEmptyKeys = append(out.meta.AcceptedEmptyKeys, key)
		}
		if outcome.cache {
			out.updates[key] = outcome.value
		}
		values[key] = outcome.value
		trace.Fields = append(trace.Fields, outcome.trace(key))
	}

	out.resolved = newSnapshot(keys, values)
	out.meta.Trace = trace
	return out, nil
}

func (r resolver) resolveField(key string, spec FieldSpec, input Value, present bool) (fieldOutcome, error) {
	behavior := spec.Empty.Effective()
	mode := modeAny
	if behavior == EmptyError {
		mode = modeNonEmpty
	}

	state := StateMissing
	switch {
	case !present:
	case input.IsEmpty():
		state = StateProvidedEmpty
	case r.validateNonEmpty(key, input, spec):
		state = StateProvidedValid
	default:
		state = StateProvidedInvalid
	}

	switch state {
	case StateProvidedValid:
		return fieldOutcome{value: input, state: state, source: SourceRaw, cache: true}, nil
	case StateProvidedEmpty:
		if behavior == EmptyAccept {
			return fieldOutcome{value: Empty, state: state, source: SourceAcceptedEmpty, accepted: true}, nil
		}
	}

	outcome, ok := r.fallback(key, spec, mode)
	if !ok {
		return fieldOutcome{}, &MissingNonEmptyFallbackError{Key: key, State: state}
	}
	outcome.state = state
	return outcome, nil
}

// fallback walks last-valid, defaults layers newest first, the declared
// default, then the canonical empty value. Non-empty candidates must still
// validate against spec. A last-valid hit is already cached and is not
// counted as a fallback.
func (r resolver) fallback(key string, spec FieldSpec, mode fallbackMode) (fieldOutcome, bool) {
	take := func(candidate Value) bool {
		if candidate.IsEmpty() {
			return mode == modeAny
		}
		return r.validateNonEmpty(key, candidate, spec)
	}

	if cached, ok := r.state.lastValid[key]; ok && take(cached) {
		return fieldOutcome{value: cached, source: SourceLastValid}, true
	}

	for i := len(r.state.defaults) - 1; i >= 0; i-- {
		layer := &r.state.defaults[i]
		candidate, ok := layer.Lookup(key)
		if !ok || !take(candidate) {
			continue
		}
		return fieldOutcome{
			value:        candidate,
			source:       SourceDefaults,
			layer:        layer,
			usedFallback: true,
			cache:        !candidate.IsEmpty(),
		}, true
	}

	if spec.Default != nil && take(*spec.Default) {
		return fieldOutcome{
			value:        *spec.Default,
			source:       SourceDeclaredDefault,
			usedFallback: true,
			cache:        !spec.Default.IsEmpty(),
		}, true
	}

	if mode == modeAny {
		return fieldOutcome{value: Empty, source: SourceEmpty, usedFallback: true}, true
	}
	return fieldOutcome{}, false
}

// validateNonEmpty checks kind, enum, range and validator for a non-empty
// candidate.
func (r resolver) validateNonEmpty(key string, v Value, spec FieldSpec) bool {
	switch spec.Kind {
	case KindAny:
	case KindBoolean:
		if v.Kind() != ValueBool {
			return false
		}
	case KindString:
		if v.Kind() != ValueString {
			return false
		}
	case KindNumber:
		if v.Kind() != ValueNumber || math.IsNaN(v.n) {
			return false
		}
	case KindObject:
		if v.Kind() != ValueObject {
			return false
		}
	default:
		return false
	}

	if spec.Enum != nil {
		text := v.Text()
		if !slices.ContainsFunc(spec.Enum, func(literal Value) bool { return literal.Text() == text }) {
			return false
		}
	}

	if spec.Range != nil {
		if v.Kind() != ValueNumber || !spec.Range.contains(v.n) {
			return false
		}
	}

	ok, err := spec.Validator.check(key, v)
	if err != nil {
		r.logger.Debug().Err(err).Str("key", key).Str("validator", spec.Validator.Name()).Msg("validator rejected value")
	}
	return ok
}
