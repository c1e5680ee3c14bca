package props

import (
	"slices"
)

// Snapshot is an immutable, ordered key/value view. Resolved snapshots list
// declared keys in declaration order; raw snapshots list keys sorted.
type Snapshot struct {
	keys   []string
	values map[string]Value
}

// EmptySnapshot has no entries.
var EmptySnapshot = Snapshot{}

func newSnapshot(keys []string, values map[string]Value) Snapshot {
	return Snapshot{keys: keys, values: values}
}

// NewRawSnapshot captures raw host input. Every entry is converted with
// ValueOf, so a nil entry is present and Empty.
func NewRawSnapshot(raw map[string]any) Snapshot {
	if len(raw) == 0 {
		return EmptySnapshot
	}
	keys := make([]string, 0, len(raw))
	values := make(map[string]Value, len(raw))
	for key, value := range raw {
		keys = append(keys, key)
		values[key] = ValueOf(value)
	}
	slices.Sort(keys)
	return newSnapshot(keys, values)
}

// Lookup returns the value stored for key and whether key is present.
func (s Snapshot) Lookup(key string) (Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Get returns the value for key, or Empty when absent.
func (s Snapshot) Get(key string) Value {
	return s.values[key]
}

// Has reports own presence of key.
func (s Snapshot) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Keys returns a copy of the ordered key list.
func (s Snapshot) Keys() []string {
	return slices.Clone(s.keys)
}

// Len returns the number of entries.
func (s Snapshot) Len() int {
	return len(s.keys)
}

// Range calls fn for each entry in order until fn returns false.
func (s Snapshot) Range(fn func(key string, value Value) bool) {
	for _, key := range s.keys {
		if !fn(key, s.values[key]) {
			return
		}
	}
}

// ToMap converts the snapshot to plain Go values. Object payloads are cloned.
func (s Snapshot) ToMap() map[string]any {
	out := make(map[string]any, len(s.keys))
	for _, key := range s.keys {
		out[key] = s.values[key].Interface()
	}
	return out
}

// diffKeys returns the keys, in order, whose values differ between prev and
// next. A key present on only one side counts as changed.
func diffKeys(prev, next Snapshot, keys []string) []string {
	var changed []string
	for _, key := range keys {
		a, inPrev := prev.values[key]
		b, inNext := next.values[key]
		if inPrev != inNext || !SameValue(a, b) {
			changed = append(changed, key)
		}
	}
	return changed
}

// unionKeys lists prev keys followed by next keys not in prev.
func unionKeys(prev, next Snapshot) []string {
	keys := slices.Clone(prev.keys)
	for _, key := range next.keys {
		if _, ok := prev.values[key]; !ok {
			keys = append(keys, key)
		}
	}
	return keys
}

func intersect(changed, keys []string) []string {
	var matched []string
	for _, key := range changed {
		if slices.Contains(keys, key) {
			matched = append(matched, key)
		}
	}
	return matched
}
