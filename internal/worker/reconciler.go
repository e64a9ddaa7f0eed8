package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/retailstore/payment-service/internal/application"
	"github.com/retailstore/payment-service/internal/domain"
	"github.com/retailstore/payment-service/internal/infrastructure/persistence/postgres"
)

// Reconciler settles payments stuck in PENDING. Deferred payment methods are
// recorded without a synchronous charge, so a background pass picks them up
// once they are older than pendingAge and runs the charge against the gateway.
type Reconciler struct {
	repo       application.PaymentRepository
	gateway    application.GatewayClient
	interval   time.Duration
	batchSize  int
	pendingAge time.Duration
	logger     *slog.Logger
}

func NewReconciler(
	repo application.PaymentRepository,
	gateway application.GatewayClient,
	interval time.Duration,
	batchSize int,
	pendingAge time.Duration,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		repo:       repo,
		gateway:    gateway,
		interval:   interval,
		batchSize:  batchSize,
		pendingAge: pendingAge,
		logger:     logger,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("starting background reconciler",
		"interval", r.interval,
		"batch_size", r.batchSize,
		"pending_age", r.pendingAge,
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping background reconciler")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single reconciliation cycle.
func (r *Reconciler) RunOnce(ctx context.Context) {
	pending, err := r.repo.FindStalePending(ctx, r.pendingAge, r.batchSize)
	if err != nil {
		r.logger.Error("failed to fetch pending payments", "error", err)
		return
	}

	if len(pending) == 0 {
		return
	}

	r.logger.Info("settling stale pending payments", "count", len(pending))

	for _, p := range pending {
		if err := r.settle(ctx, p); err != nil {
			r.logger.Error("failed to settle payment",
				"payment_id", p.ID,
				"transaction_id", p.TransactionID,
				"error", err,
			)
		}
	}
}

func (r *Reconciler) settle(ctx context.Context, payment *domain.Payment) error {
	chargeReq := application.ChargeRequest{
		Amount: payment.Amount,
		Method: payment.Method,
	}

	// The transaction ID keys the charge so a crashed or repeated cycle
	// cannot double-charge.
	resp, err := r.gateway.Charge(ctx, chargeReq, payment.TransactionID)
	switch {
	case err == nil && resp.Authorized:
		if err := payment.Complete(resp.GatewayReference, resp.CreatedAt); err != nil {
			return err
		}
	case err == nil && !resp.Authorized:
		if err := payment.Fail(); err != nil {
			return err
		}
	case application.IsGatewayDeclined(err):
		if err := payment.Fail(); err != nil {
			return err
		}
	case application.IsGatewayUnavailable(err):
		// Leave PENDING; the next cycle retries.
		return nil
	default:
		return err
	}

	if err := r.repo.Update(ctx, payment); err != nil {
		// Another writer settled it first; nothing left to do.
		if errors.Is(err, postgres.ErrVersionConflict) || errors.Is(err, postgres.ErrPaymentNotFound) {
			return nil
		}
		return err
	}

	r.logger.Info("payment settled",
		"payment_id", payment.ID,
		"transaction_id", payment.TransactionID,
		"status", payment.Status,
	)
	return nil
}
