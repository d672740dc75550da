package fuse

import (
	"github.com/deep-compute/logaggfs/internal/log"
)

// Tracer provides leveled logging for FUSE operations.
type Tracer struct {
	log   log.Sink
	level int
}

// NewTracer creates a tracer with the given level.
// Level 0 = off, 1 = capture events only, 2 = all ops.
func NewTracer(sink log.Sink, level int) *Tracer {
	if sink == nil {
		sink = log.Discard
	}
	return &Tracer{log: sink, level: level}
}

// Op records a filesystem operation at level 2.
func (t *Tracer) Op(op string, kv ...any) {
	if t.level < TraceAll {
		return
	}
	t.log.Debug(op, kv...)
}

// OpErr records a failed filesystem operation at level 2.
func (t *Tracer) OpErr(op string, err error, kv ...any) {
	if t.level < TraceAll {
		return
	}
	t.log.Exception(op, err, append(kv, "kind", KindOf(err).String())...)
}

// Capture records a capture event at level 1.
func (t *Tracer) Capture(event string, kv ...any) {
	if t.level < TraceCapture {
		return
	}
	t.log.Debug(event, kv...)
}
