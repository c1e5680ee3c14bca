package props

import "fmt"

// Merge folds incoming into base. Keys only in incoming are appended in their
// incoming order. Keys in both must not weaken what base guarantees: a kind
// change, a stricter empty behavior, a narrower enum or range, or a different
// validator is a conflict. When any conflict exists the whole batch is
// rejected, base is returned as-is, and the error lists every offending key.
// Warnings are returned on success and are never fatal.
func Merge(base, incoming SchemaMap) (SchemaMap, []Diagnostic, error) {
	out := base.clone()
	if out.specs == nil {
		out.specs = map[string]FieldSpec{}
	}

	var warnings, conflicts []Diagnostic
	for _, key := range incoming.keys {
		next := incoming.specs[key]
		prev, exists := out.specs[key]
		if !exists {
			out.keys = append(out.keys, key)
			out.specs[key] = next.clone()
			continue
		}

		merged, notes := mergeField(key, prev, next)
		hasConflict := false
		for _, note := range notes {
			if note.Level == LevelError {
				conflicts = append(conflicts, note)
				hasConflict = true
				continue
			}
			warnings = append(warnings, note)
		}
		if !hasConflict {
			out.specs[key] = merged
		}
	}

	if len(conflicts) > 0 {
		return base, nil, &SchemaConflictError{Conflicts: conflicts}
	}
	return out, warnings, nil
}

// mergeField stops at the first conflict for a key, so one key contributes at
// most one error.
func mergeField(key string, prev, next FieldSpec) (FieldSpec, []Diagnostic) {
	var notes []Diagnostic

	if prev.Kind != next.Kind {
		return prev, append(notes, conflict(CodeKindConflict, key,
			fmt.Sprintf("kind conflict: %s vs %s", prev.Kind, next.Kind)))
	}

	if next.Empty != EmptyUnset {
		pr, nr := prev.Empty.rank(), next.Empty.rank()
		switch {
		case nr > pr:
			return prev, append(notes, conflict(CodeEmptyStricter, key,
				fmt.Sprintf("empty behavior becomes stricter (%s -> %s)", prev.Empty.Effective(), next.Empty)))
		case nr < pr:
			notes = append(notes, warning(CodeEmptyLooser, key,
				fmt.Sprintf("empty behavior becomes looser (%s -> %s)", prev.Empty.Effective(), next.Empty)))
		}
	}

	if next.Enum != nil {
		switch {
		case !enumCovers(next.Enum, prev.Enum):
			return prev, append(notes, conflict(CodeEnumNarrowed, key, "enum becomes stricter (not a superset)"))
		case !enumCovers(prev.Enum, next.Enum):
			notes = append(notes, warning(CodeEnumWidened, key, "enum widened (superset)"))
		}
	}

	if next.Range != nil {
		switch {
		case !next.Range.covers(prev.Range):
			return prev, append(notes, conflict(CodeRangeNarrowed, key, "range becomes stricter (narrower)"))
		case !prev.Range.covers(next.Range):
			notes = append(notes, warning(CodeRangeWidened, key, "range widened"))
		}
	}

	if next.Validator != nil && !sameValidator(prev.Validator, next.Validator) {
		return prev, append(notes, conflict(CodeValidatorChanged, key,
			"validator change is considered stricter or ambiguous; disallowed in define"))
	}

	if prev.Default != nil && next.Default != nil && !SameValue(*prev.Default, *next.Default) {
		notes = append(notes, warning(CodeDefaultOverridden, key,
			"default overridden in define; prefer SetDefaults"))
	}

	// Omitted constraints, the validator included, keep the base value.
	merged := prev.clone()
	if next.Empty != EmptyUnset {
		merged.Empty = next.Empty
	}
	if next.Enum != nil {
		merged.Enum = next.clone().Enum
	}
	if next.Range != nil {
		merged.Range = next.Range.clone()
	}
	if next.Default != nil {
		v := *next.Default
		merged.Default = &v
	}
	return merged, notes
}

// enumCovers reports whether wide allows every literal narrow allows. A nil
// enum is unrestricted.
func enumCovers(wide, narrow []Value) bool {
	if wide == nil {
		return true
	}
	if narrow == nil {
		return false
	}
	allowed := make(map[string]struct{}, len(wide))
	for _, literal := range wide {
		allowed[literal.Text()] = struct{}{}
	}
	for _, literal := range narrow {
		if _, ok := allowed[literal.Text()]; !ok {
			return false
		}
	}
	return true
}
