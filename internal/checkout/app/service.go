// Package app holds the order-creation orchestration: validation, pricing
// aggregation, transactional persistence and best-effort notification,
// sequenced as a linear state machine with no backtracking.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/checkout-service/internal/checkout/domain"
	"github.com/jcmexdev/checkout-service/internal/checkout/oplog"
	"github.com/jcmexdev/checkout-service/internal/checkout/ports"
)

// CreateOrderInput is the validated-shape input of one checkout attempt.
type CreateOrderInput struct {
	UserEmail string
	Lines     []domain.LineRequest

	// IdempotencyKey is optional; when present and already seen, the
	// original order is returned instead of creating a new one.
	IdempotencyKey string
}

// Options carries the optional collaborators of the service. Nil fields
// disable the corresponding feature.
type Options struct {
	// OpLog receives one entry per stage transition.
	OpLog oplog.Repository

	// Idempotency enables X-Idempotency-Key replay.
	Idempotency *IdempotencyStore

	// NotifyTimeout bounds the fire-and-forget notification call
	// (default 5s).
	NotifyTimeout time.Duration
}

// Service is the orchestration controller. One call to CreateOrder walks
// Validated → Pricing → Persisting → Committed → Notified; any failure
// before Committed aborts with no side effects, and nothing after
// Committed can undo the order.
type Service struct {
	pricing       *Aggregator
	orders        ports.OrderRepository
	notifier      ports.NotificationSender
	opLog         oplog.Repository
	idempotency   *IdempotencyStore
	notifyTimeout time.Duration

	// notifications tracks in-flight fire-and-forget sends so Shutdown
	// can drain them.
	notifications sync.WaitGroup
}

// NewService wires the orchestrator. source, orders and notifier are
// required; opts may be the zero value.
func NewService(source ports.PriceSource, orders ports.OrderRepository, notifier ports.NotificationSender, opts Options) *Service {
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 5 * time.Second
	}
	return &Service{
		pricing:       NewAggregator(source),
		orders:        orders,
		notifier:      notifier,
		opLog:         opts.OpLog,
		idempotency:   opts.Idempotency,
		notifyTimeout: opts.NotifyTimeout,
	}
}

// CreateOrder runs one checkout attempt end to end and returns the
// persisted order.
//
// Error taxonomy: *domain.ValidationError for malformed input (no side
// effects), *domain.PricingError when any line cannot be priced (no
// transaction opened), *domain.StorageError when persistence fails (rolled
// back, safe to retry). Notification failures are logged and swallowed;
// the committed order is the durable source of truth.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	if order, ok := s.replayIdempotent(ctx, input.IdempotencyKey); ok {
		return order, nil
	}

	// The reference identifies this attempt across the operation log,
	// the order row and the trace before a database id exists.
	ref := uuid.NewString()
	s.logStage(ctx, ref, oplog.StageValidated, "")

	s.logStage(ctx, ref, oplog.StagePricing, fmt.Sprintf("%d lines", len(input.Lines)))
	resolved, total, err := s.pricing.Resolve(ctx, input.Lines)
	if err != nil {
		s.logStage(ctx, ref, oplog.StageFailed, err.Error())
		return nil, err
	}

	// All network-dependent resolution is done; from here the
	// transaction wraps pure local writes only.
	s.logStage(ctx, ref, oplog.StagePersisting, "")
	order := domain.NewPendingOrder(ref, input.UserEmail, resolved, total)
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.logStage(ctx, ref, oplog.StageFailed, err.Error())
		return nil, err
	}
	s.logStage(ctx, ref, oplog.StageCommitted, fmt.Sprintf("order %d", order.ID))

	if s.idempotency != nil && input.IdempotencyKey != "" {
		s.idempotency.Remember(ctx, input.IdempotencyKey, order.ID)
	}

	s.dispatchNotification(ctx, order)

	return order, nil
}

// GetOrder loads a persisted order with its items.
func (s *Service) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.orders.GetOrder(ctx, id)
}

// Shutdown waits for in-flight notifications to finish, up to ctx's
// deadline.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.notifications.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatchNotification sends the order email on its own goroutine. The
// context is detached from the request so a client disconnect cannot
// cancel it; the notifier's own timeout bounds the attempt.
func (s *Service) dispatchNotification(ctx context.Context, order *domain.Order) {
	notifyCtx := context.WithoutCancel(ctx)
	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()

		ctx, cancel := context.WithTimeout(notifyCtx, s.notifyTimeout)
		defer cancel()

		if err := s.notifier.SendOrderEmail(ctx, order); err != nil {
			slog.ErrorContext(ctx, "failed to send order email",
				"order_id", order.ID,
				"error", err,
			)
			s.logStage(ctx, order.Reference, oplog.StageNotified, fmt.Sprintf("failed: %v", err))
			return
		}
		s.logStage(ctx, order.Reference, oplog.StageNotified, "")
	}()
}

// replayIdempotent returns the order previously created under the key, if
// idempotency is enabled and the key was seen before.
func (s *Service) replayIdempotent(ctx context.Context, key string) (*domain.Order, bool) {
	if s.idempotency == nil || key == "" {
		return nil, false
	}
	id, ok := s.idempotency.Lookup(ctx, key)
	if !ok {
		return nil, false
	}
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "idempotency hit but order load failed, reprocessing",
			"order_id", id,
			"error", err,
		)
		return nil, false
	}
	slog.InfoContext(ctx, "idempotent replay", "order_id", id)
	return order, true
}

// logStage appends one operation-log entry; disabled when no repository
// is configured, best-effort otherwise.
func (s *Service) logStage(ctx context.Context, ref string, stage oplog.Stage, detail string) {
	if s.opLog == nil {
		return
	}
	if err := s.opLog.Save(ctx, oplog.NewEntry(ctx, ref, stage, detail)); err != nil {
		slog.WarnContext(ctx, "checkout log write failed",
			"order_ref", ref,
			"stage", string(stage),
			"error", err,
		)
	}
}

func validate(input CreateOrderInput) error {
	if input.UserEmail == "" {
		return &domain.ValidationError{Field: "user_email", Reason: "required"}
	}
	addr, err := mail.ParseAddress(input.UserEmail)
	if err != nil || addr.Address != input.UserEmail {
		return &domain.ValidationError{Field: "user_email", Reason: "must be a valid email address"}
	}

	if len(input.Lines) == 0 {
		return &domain.ValidationError{Field: "items", Reason: "at least one item is required"}
	}
	for i, line := range input.Lines {
		if line.ProductID <= 0 {
			return &domain.ValidationError{
				Field:  fmt.Sprintf("items[%d].product_id", i),
				Reason: "must be a positive integer",
			}
		}
		if line.Quantity <= 0 {
			return &domain.ValidationError{
				Field:  fmt.Sprintf("items[%d].quantity", i),
				Reason: "must be a positive integer",
			}
		}
	}
	return nil
}
