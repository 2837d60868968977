package stable

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "prev == missing", "style", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != "prev == missing" || evalErr.Key != "style" {
		t.Fatalf("unexpected metadata %+v", evalErr)
	}
	if !errors.Is(err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
	if !strings.Contains(err.Error(), `expr="prev == missing"`) || !strings.Contains(err.Error(), "key=style") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{Engine: "expr", Err: base}

	err := wrapEvaluationError("cel", "rule", "rows", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" || existing.Key != "rows" {
		t.Fatalf("expected missing metadata to be filled, got %+v", existing)
	}
	if wrapEvaluationError("expr", "x", "k", nil) != nil {
		t.Fatalf("nil error should stay nil")
	}
}

func TestEvaluationErrorDescribesEmptyFields(t *testing.T) {
	err := &EvaluationError{Engine: "cel", Err: errors.New("bad")}
	if got := err.Error(); !strings.Contains(got, "expr=<empty>") || !strings.Contains(got, "key=*") {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestWrapEvaluatorErrorPrefixes(t *testing.T) {
	err := wrapEvaluatorError("expr", errors.New("boom"))
	if err.Error() != "stable: expr evaluator: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	prefixed := errors.New("stable: already wrapped")
	if wrapEvaluatorError("expr", prefixed) != prefixed {
		t.Fatalf("prefixed errors should pass through")
	}
	evalErr := &EvaluationError{Engine: "cel", Err: errors.New("x")}
	if wrapEvaluatorError("expr", evalErr) != error(evalErr) {
		t.Fatalf("evaluation errors should pass through")
	}
}

func TestUnknownKeyErrorMatchesSentinel(t *testing.T) {
	err := error(&UnknownKeyError{View: "v1", Key: "color"})
	if !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey match")
	}
	var unknown *UnknownKeyError
	if !errors.As(err, &unknown) || unknown.Key != "color" {
		t.Fatalf("expected UnknownKeyError, got %T", err)
	}
	if err.Error() != `stable: view v1 has no key "color"` {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestAsyncCallbackWarningMessage(t *testing.T) {
	warning := &AsyncCallbackWarning{View: "v1", Key: "onSave", Result: "chan int"}
	if !strings.Contains(warning.Error(), `"onSave"`) || !strings.Contains(warning.Error(), "chan int") {
		t.Fatalf("unexpected message %q", warning.Error())
	}
}
