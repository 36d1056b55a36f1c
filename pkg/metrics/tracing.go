package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// TraceMethodCall starts a segment named "<structOrPackageName> <methodName>"
// within the transaction carried by ctx. A nil tracer is returned when ctx
// carries no transaction; all MethodTracer methods are nil-safe.
func TraceMethodCall(ctx context.Context, structOrPackageName, methodName string) *MethodTracer {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return nil
	}

	return &MethodTracer{
		txn: txn,
		seg: txn.StartSegment(structOrPackageName + " " + methodName),
	}
}

// MethodTracer collects analytics for a method call within an existing trace.
type MethodTracer struct {
	txn *newrelic.Transaction
	seg *newrelic.Segment
}

// AddAttribute adds a key-value pair to the method trace
func (t *MethodTracer) AddAttribute(key string, value interface{}) {
	if t == nil {
		return
	}
	t.seg.AddAttribute(key, value)
}

// OnError notices a non-nil error on the surrounding transaction
func (t *MethodTracer) OnError(err error) {
	if t == nil || err == nil {
		return
	}
	t.txn.NoticeError(err)
}

// End completes the trace for the method call.
func (t *MethodTracer) End() {
	if t == nil {
		return
	}
	t.seg.End()
}
