package props

import "slices"

// WatchInfo lists the keys that changed. ChangedKeysMatched is the subset the
// receiving observer registered for; for "all" observers it equals
// ChangedKeysAll.
type WatchInfo struct {
	ChangedKeysAll     []string
	ChangedKeysMatched []string
}

// WatchFunc observes a transition. run is the value the Apply caller passed
// through; the kernel never inspects it.
type WatchFunc[R any] func(run R, next, prev Snapshot, info WatchInfo)

type registryKind uint8

const (
	registryRawAll registryKind = iota
	registryRawKeyed
	registryResolvedAll
	registryResolvedKeyed
)

func (k registryKind) String() string {
	switch k {
	case registryRawAll:
		return "raw_all"
	case registryRawKeyed:
		return "raw_keyed"
	case registryResolvedAll:
		return "resolved_all"
	default:
		return "resolved_keyed"
	}
}

type watchRegistration[R any] struct {
	keys []string
	fn   WatchFunc[R]
}

// watchers owns the four observer registries. Registration order is kept.
type watchers[R any] struct {
	rawAll        []watchRegistration[R]
	rawKeyed      []watchRegistration[R]
	resolvedAll   []watchRegistration[R]
	resolvedKeyed []watchRegistration[R]
}

func (w *watchers[R]) add(kind registryKind, keys []string, fn WatchFunc[R]) {
	reg := watchRegistration[R]{keys: slices.Clone(keys), fn: fn}
	switch kind {
	case registryRawAll:
		w.rawAll = append(w.rawAll, reg)
	case registryRawKeyed:
		w.rawKeyed = append(w.rawKeyed, reg)
	case registryResolvedAll:
		w.resolvedAll = append(w.resolvedAll, reg)
	case registryResolvedKeyed:
		w.resolvedKeyed = append(w.resolvedKeyed, reg)
	}
}

func (w *watchers[R]) reset() {
	*w = watchers[R]{}
}

func (w *watchers[R]) count() int {
	return len(w.rawAll) + len(w.rawKeyed) + len(w.resolvedAll) + len(w.resolvedKeyed)
}

// fire invokes the "all" registry then the keyed registry for one diff.
// onFire runs after each invocation.
func fire[R any](all, keyed []watchRegistration[R], changed []string, run R, next, prev Snapshot, onFire func(registryKind), allKind, keyedKind registryKind) {
	if len(changed) > 0 {
		for _, reg := range all {
			reg.fn(run, next, prev, WatchInfo{
				ChangedKeysAll:     slices.Clone(changed),
				ChangedKeysMatched: slices.Clone(changed),
			})
			onFire(allKind)
		}
	}
	for _, reg := range keyed {
		matched := intersect(changed, reg.keys)
		if len(matched) == 0 {
			continue
		}
		reg.fn(run, next, prev, WatchInfo{
			ChangedKeysAll:     slices.Clone(changed),
			ChangedKeysMatched: matched,
		})
		onFire(keyedKind)
	}
}
