package stable

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownKey matches every UnknownKeyError via errors.Is.
	ErrUnknownKey = errors.New("stable: unknown key")
	// ErrNotCallable reports a handle whose key no longer holds a function.
	ErrNotCallable = errors.New("stable: value is not callable")
	// ErrNoEvaluator reports an expression rule whose engine is unavailable.
	ErrNoEvaluator = errors.New("stable: evaluator not configured")
	// ErrUnhashableKey reports a factory key that cannot index a registry.
	ErrUnhashableKey = errors.New("stable: factory key is not comparable")
)

// UnknownKeyError is returned when a write targets a key that was absent from
// the most recent update or merge.
type UnknownKeyError struct {
	View string
	Key  string
}

func (e *UnknownKeyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("stable: view %s has no key %q", e.View, e.Key)
}

func (e *UnknownKeyError) Is(target error) bool {
	return target == ErrUnknownKey
}

// AsyncCallbackWarning describes a wrapped callback that returned an
// awaitable result. It is logged, never returned.
type AsyncCallbackWarning struct {
	View   string
	Key    string
	Result string
}

func (w *AsyncCallbackWarning) Error() string {
	if w == nil {
		return "<nil>"
	}
	return fmt.Sprintf("stable: callback %q on view %s returned %s; reads of other stable fields after it resumes observe later generations, keep async state in a value holder instead", w.Key, w.View, w.Result)
}

// EvaluationError captures expression comparator metadata alongside the
// originating error.
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
	return fmt.Sprintf("stable: %s comparator %s key=%s: %v", e.Engine, describeExpression(e.Expr), describeKey(e.Key), e.Err)
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
		return "*"
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

	if strings.HasPrefix(err.Error(), "stable:") {
		return err
	}
	return fmt.Errorf("stable: %s evaluator: %w", engine, err)
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
