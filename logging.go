package stable

import "time"

// LogKind classifies a LogEvent.
type LogKind string

const (
	// LogEvaluation records an expression comparator run.
	LogEvaluation LogKind = "evaluation"
	// LogAsyncCallback records an AsyncCallbackWarning.
	LogAsyncCallback LogKind = "async_callback"
	// LogUnknownKey records a rejected write.
	LogUnknownKey LogKind = "unknown_key"
)

// LogEvent describes a diagnostic produced by a view.
type LogEvent struct {
	Kind     LogKind
	View     string
	Key      string
	Engine   string
	Expr     string
	Duration time.Duration
	Err      error
}

// Logger records view diagnostics.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

// WithLogger attaches a diagnostics logger to the view.
func WithLogger(logger Logger) Option {
	return func(cfg *viewConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
