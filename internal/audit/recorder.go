package audit

import (
	"context"
	"time"

	"github.com/nerrad567/http-gpio/internal/gateway"
)

// writeTimeout bounds one insert; observers run on the request path.
const writeTimeout = 2 * time.Second

// Logger defines the logging interface used by the recorder.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Recorder is a gateway.Observer that appends every pin operation to a
// Repository. Write failures are logged, never returned to the caller.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger for write failures.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// ObservePinOperation implements gateway.Observer.
func (r *Recorder) ObservePinOperation(e gateway.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	op := FromEvent(e)
	if err := r.repo.Create(ctx, &op); err != nil {
		r.logger.Error("recording pin operation",
			"pin", e.Pin.String(),
			"operation", string(e.Operation),
			"error", err,
		)
	}
}

// FromEvent converts a gateway event to an audit entry. A failed read has
// no value.
func FromEvent(e gateway.Event) PinOperation {
	op := PinOperation{
		Controller: e.Pin.Controller,
		Offset:     e.Pin.Offset,
		Operation:  string(e.Operation),
		Schedule:   e.Schedule,
		DurationMS: e.Duration.Milliseconds(),
		Source:     string(e.Source),
		CreatedAt:  e.Timestamp,
	}
	if e.Err != nil {
		op.Error = e.Err.Error()
	}
	if e.Err == nil || e.Operation == gateway.OperationWrite {
		v := e.Value
		op.Value = &v
	}
	return op
}
