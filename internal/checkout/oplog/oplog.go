// Package oplog defines the append-only operation log of the checkout
// flow. Each order-creation attempt writes one row per stage transition,
// so the database answers "where did this checkout get to" and, via the
// trace_id column, links straight to the distributed trace.
package oplog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Stage is a checkpoint in the linear checkout state machine.
type Stage string

const (
	StageValidated  Stage = "VALIDATED"
	StagePricing    Stage = "PRICING"
	StagePersisting Stage = "PERSISTING"
	StageCommitted  Stage = "COMMITTED"
	StageNotified   Stage = "NOTIFIED"
	StageFailed     Stage = "FAILED"
)

// Entry is a single row in the checkout_log table: a point-in-time
// snapshot of one order-creation attempt.
type Entry struct {
	// OrderRef is the order's uuid reference, assigned before
	// persistence so every stage of one attempt shares it.
	OrderRef string

	// Stage is the checkpoint that was just reached.
	Stage Stage

	// Detail carries stage context: the failing error for StageFailed,
	// the line count for StagePricing, empty otherwise.
	Detail string

	// TraceID and SpanID are the W3C identifiers of the span active when
	// the entry was written. Empty when no span is active (unit tests).
	TraceID string
	SpanID  string

	// At is the wall-clock time of the transition.
	At time.Time
}

// Repository is the port for persisting log entries. The orchestrator
// depends on this abstraction and treats a nil Repository as "logging
// disabled".
type Repository interface {
	// Save appends one entry; the log is append-only, never upserted.
	Save(ctx context.Context, entry *Entry) error
}

// NewEntry builds an Entry with trace identifiers extracted from the span
// active in ctx.
func NewEntry(ctx context.Context, orderRef string, stage Stage, detail string) *Entry {
	e := &Entry{
		OrderRef: orderRef,
		Stage:    stage,
		Detail:   detail,
		At:       time.Now().UTC(),
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		e.TraceID = sc.TraceID().String()
		e.SpanID = sc.SpanID().String()
	}
	return e
}
