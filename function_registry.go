package props

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"
)

// Function is a host function callable from validator expressions, either
// directly by name or through call("name", args...).
type Function func(args ...any) (any, error)

// ErrFunctionNotFound is returned by Call for unknown names.
var ErrFunctionNotFound = errors.New("props: function not registered")

// FunctionRegistry maps case-insensitive names to functions. It is safe for
// concurrent use; evaluators hold their own clone.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]Function{}}
}

// DefaultFunctionRegistry returns a registry holding the built-in helpers:
//
//	regex(value, pattern)    regular expression match on a string
//	length(value)            rune count of a string, size of a list or object
//	between(value, lo, hi)   inclusive numeric range check
func DefaultFunctionRegistry() *FunctionRegistry {
	r := NewFunctionRegistry()
	r.functions["regex"] = builtinRegex
	r.functions["length"] = builtinLength
	r.functions["between"] = builtinBetween
	return r
}

func functionKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds fn under name. Registering a name twice is an error.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := functionKey(name)
	switch {
	case key == "":
		return fmt.Errorf("props: function name must not be empty")
	case fn == nil:
		return fmt.Errorf("props: function %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]Function{}
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("props: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Lookup returns the function registered under name.
func (r *FunctionRegistry) Lookup(name string) (Function, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[functionKey(name)]
	return fn, ok
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	return fn(args...)
}

// Clone copies the name table. Functions are shared.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &FunctionRegistry{functions: maps.Clone(r.functions)}
}

// Names returns the normalized names in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.functions))
}

var patternCache sync.Map // pattern -> *regexp.Regexp

func builtinRegex(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("props: regex expects 2 arguments, got %d", len(args))
	}
	pattern, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("props: regex pattern must be a string")
	}
	subject, ok := args[0].(string)
	if !ok {
		return false, nil
	}

	var re *regexp.Regexp
	if cached, hit := patternCache.Load(pattern); hit {
		re = cached.(*regexp.Regexp)
	} else {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("props: regex pattern: %w", err)
		}
		patternCache.Store(pattern, compiled)
		re = compiled
	}
	return re.MatchString(subject), nil
}

func builtinLength(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("props: length expects 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case string:
		return utf8.RuneCountInString(v), nil
	case []any:
		return len(v), nil
	case map[string]any:
		return len(v), nil
	case nil:
		return 0, nil
	default:
		return nil, fmt.Errorf("props: length of %T", v)
	}
}

func builtinBetween(args ...any) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("props: between expects 3 arguments, got %d", len(args))
	}
	bounds := make([]float64, 3)
	for i, arg := range args {
		n, ok := numericArg(arg)
		if !ok {
			if i == 0 {
				return false, nil
			}
			return nil, fmt.Errorf("props: between bound %v is not a number", arg)
		}
		bounds[i] = n
	}
	return bounds[0] >= bounds[1] && bounds[0] <= bounds[2], nil
}

func numericArg(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
