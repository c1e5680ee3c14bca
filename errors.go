package props

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchemaConflict matches every *SchemaConflictError.
	ErrSchemaConflict = errors.New("props: schema conflict")
	// ErrMissingNonEmptyFallback matches every *MissingNonEmptyFallbackError.
	ErrMissingNonEmptyFallback = errors.New("props: no non-empty fallback")
	// ErrRegistration matches every *RegistrationError.
	ErrRegistration = errors.New("props: invalid watch registration")
	// ErrReentrantApply is returned when Apply is invoked while another Apply
	// on the same kernel is still dispatching.
	ErrReentrantApply = errors.New("props: apply re-entered while dispatching")
)

// SchemaConflictError reports every key of a rejected define batch.
type SchemaConflictError struct {
	Conflicts []Diagnostic
}

func (e *SchemaConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, len(e.Conflicts))
	for _, conflict := range e.Conflicts {
		if conflict.Key != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", conflict.Key, conflict.Message))
			continue
		}
		parts = append(parts, conflict.Message)
	}
	return fmt.Sprintf("props: define merge error: %s", strings.Join(parts, "; "))
}

func (e *SchemaConflictError) Is(target error) bool {
	return target == ErrSchemaConflict
}

// Keys lists the conflicting keys in report order.
func (e *SchemaConflictError) Keys() []string {
	if e == nil {
		return nil
	}
	keys := make([]string, 0, len(e.Conflicts))
	for _, conflict := range e.Conflicts {
		keys = append(keys, conflict.Key)
	}
	return keys
}

// MissingNonEmptyFallbackError is raised when a field declared with
// EmptyError has no qualifying non-empty candidate.
type MissingNonEmptyFallbackError struct {
	Key   string
	State InputState
}

func (e *MissingNonEmptyFallbackError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("props: prop %q is %s and empty=%q has no non-empty fallback", e.Key, e.State.describe(), EmptyError)
}

func (e *MissingNonEmptyFallbackError) Is(target error) bool {
	return target == ErrMissingNonEmptyFallback
}

// RegistrationError reports a rejected watch registration.
type RegistrationError struct {
	Op     string
	Key    string
	Reason string
}

func (e *RegistrationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Key != "" {
		return fmt.Sprintf("props: %s: %s: %s", e.Op, e.Reason, e.Key)
	}
	return fmt.Sprintf("props: %s: %s", e.Op, e.Reason)
}

func (e *RegistrationError) Is(target error) bool {
	return target == ErrRegistration
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Key    string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("props: %s evaluator %s key=%s: %v", e.Engine, describeExpression(e.Expr), describeKey(e.Key), e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func describeKey(key string) string {
	if key == "" {
		return "<none>"
	}
	return key
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "props:") {
		return err
	}
	return fmt.Errorf("props: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, key string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Key == "" {
			evalErr.Key = key
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Key:    key,
		Err:    err,
	}
}
