package pipeline

import (
	"context"

	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
)

// Sink is a destination for rendered line protocol.
//
// Precision picks the unit a batch should be rendered in for this sink.
// Send must accept any payload previously rendered at a precision the sink
// chose, including one replayed from the spool after a restart.
type Sink interface {
	Name() string
	Precision(batch *lineprotocol.Batch) lineprotocol.Precision
	Send(ctx context.Context, payload []byte, precision lineprotocol.Precision) error
}

// Rejecter is implemented by sinks that can tell a payload the server
// refused from a transient failure. Rejected payloads are not spooled, and
// rejected spool entries are dropped on replay.
type Rejecter interface {
	Rejected(err error) bool
}

func rejected(sink Sink, err error) bool {
	r, ok := sink.(Rejecter)
	return ok && r.Rejected(err)
}

// Logger is the subset of logging.Logger the pipeline uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
