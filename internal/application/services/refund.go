package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/retailstore/payment-service/internal/application"
	"github.com/retailstore/payment-service/internal/domain"
	"github.com/retailstore/payment-service/internal/infrastructure/persistence/postgres"
)

// maxUpdateAttempts bounds the optimistic-concurrency retry loop.
const maxUpdateAttempts = 3

type RefundService struct {
	paymentRepo application.PaymentRepository
	gateway     application.GatewayClient
	logger      *slog.Logger
}

func NewRefundService(
	paymentRepo application.PaymentRepository,
	gateway application.GatewayClient,
	logger *slog.Logger,
) *RefundService {
	return &RefundService{
		paymentRepo: paymentRepo,
		gateway:     gateway,
		logger:      logger,
	}
}

// Refund reverses a COMPLETED payment. Refunding an already-REFUNDED payment
// returns the recorded terminal result so retried requests converge on one
// outcome. Each attempt re-reads the record; a version conflict on update means
// another writer got there first and the loop starts over.
func (s *RefundService) Refund(ctx context.Context, paymentID string) (*domain.Payment, error) {
	var lastErr error

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		payment, err := s.paymentRepo.FindByID(ctx, paymentID)
		if err != nil {
			if errors.Is(err, postgres.ErrPaymentNotFound) {
				return nil, err
			}
			return nil, application.NewInternalError(err)
		}

		if payment.Status == domain.StatusRefunded {
			return payment, nil
		}

		if err := payment.Refund(time.Now()); err != nil {
			return nil, err
		}

		if payment.GatewayRef == nil {
			return nil, application.NewInternalError(
				fmt.Errorf("payment %s has no gateway reference", payment.ID))
		}

		refundReq := application.RefundRequest{
			GatewayReference: *payment.GatewayRef,
		}
		refundResp, err := s.gateway.Refund(ctx, refundReq, payment.TransactionID+":refund")
		if err != nil {
			if application.IsGatewayUnavailable(err) {
				return nil, application.NewGatewayUnavailableError(err)
			}
			return nil, err
		}
		if !refundResp.Refunded {
			// A 200 that did not refund must not flip the record to REFUNDED.
			return nil, application.NewInternalError(
				fmt.Errorf("gateway did not refund charge %s", *payment.GatewayRef))
		}

		payment.RefundedAt = &refundResp.RefundedAt
		payment.UpdatedAt = refundResp.RefundedAt

		if err := s.paymentRepo.Update(ctx, payment); err != nil {
			if errors.Is(err, postgres.ErrVersionConflict) {
				lastErr = err
				continue
			}
			if errors.Is(err, postgres.ErrPaymentNotFound) {
				return nil, err
			}
			return nil, application.NewInternalError(err)
		}

		s.logger.Info("payment refunded",
			"payment_id", payment.ID,
			"transaction_id", payment.TransactionID,
			"refund_id", refundResp.RefundID,
		)
		return payment, nil
	}

	return nil, application.NewConflictError(lastErr)
}
