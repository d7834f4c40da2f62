package sqlite

import (
	"context"
	"fmt"

	"github.com/jcmexdev/checkout-service/internal/checkout/oplog"
)

var _ oplog.Repository = (*Store)(nil)

// Save appends one checkout log entry. Safe to call concurrently.
func (s *Store) Save(ctx context.Context, entry *oplog.Entry) error {
	const q = `
		INSERT INTO checkout_log (order_ref, stage, detail, trace_id, span_id, at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		entry.OrderRef,
		string(entry.Stage),
		entry.Detail,
		entry.TraceID,
		entry.SpanID,
		formatTime(entry.At),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save checkout log for %q: %w", entry.OrderRef, err)
	}
	return nil
}
