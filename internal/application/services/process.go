package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/retailstore/payment-service/internal/application"
	"github.com/retailstore/payment-service/internal/domain"
	"github.com/retailstore/payment-service/internal/infrastructure/persistence/postgres"
)

type ProcessService struct {
	paymentRepo application.PaymentRepository
	gateway     application.GatewayClient
	logger      *slog.Logger
}

func NewProcessService(
	paymentRepo application.PaymentRepository,
	gateway application.GatewayClient,
	logger *slog.Logger,
) *ProcessService {
	return &ProcessService{
		paymentRepo: paymentRepo,
		gateway:     gateway,
		logger:      logger,
	}
}

// Process records a payment attempt for an order. Instant methods are charged
// synchronously through the gateway; deferred methods are persisted PENDING and
// settled later by the reconciler. A retried request for an order with an
// active payment returns that payment instead of creating a duplicate.
func (s *ProcessService) Process(ctx context.Context, cmd ProcessCommand) (*domain.Payment, error) {
	transactionID := uuid.New().String()

	payment, err := domain.NewPayment(
		uuid.New().String(),
		transactionID,
		cmd.OrderID,
		cmd.UserID,
		cmd.Amount,
		cmd.Method,
	)
	if err != nil {
		return nil, err
	}

	existing, err := s.paymentRepo.FindActiveByOrderID(ctx, cmd.OrderID)
	if err == nil {
		s.logger.Info("order already has an active payment, returning it",
			"order_id", cmd.OrderID,
			"transaction_id", existing.TransactionID,
			"status", existing.Status,
		)
		return existing, nil
	}
	if !errors.Is(err, postgres.ErrPaymentNotFound) {
		return nil, application.NewInternalError(err)
	}

	var declineErr error
	if domain.InstantMethod(cmd.Method) {
		chargeReq := application.ChargeRequest{
			Amount: cmd.Amount,
			Method: cmd.Method,
		}

		chargeResp, err := s.gateway.Charge(ctx, chargeReq, transactionID)
		switch {
		case err == nil && chargeResp.Authorized:
			if err := payment.Complete(chargeResp.GatewayReference, chargeResp.CreatedAt); err != nil {
				return nil, application.NewInternalError(err)
			}

		case err == nil && !chargeResp.Authorized:
			if err := payment.Fail(); err != nil {
				return nil, application.NewInternalError(err)
			}
			declineErr = application.NewGatewayDeclinedError(nil)

		case application.IsGatewayDeclined(err):
			if failErr := payment.Fail(); failErr != nil {
				return nil, application.NewInternalError(failErr)
			}
			declineErr = application.NewGatewayDeclinedError(err)

		case application.IsGatewayUnavailable(err):
			// Transient. Persisting FAILED here would turn an outage into a
			// decline, so nothing is recorded and the client may retry.
			return nil, application.NewGatewayUnavailableError(err)

		default:
			return nil, application.NewInternalError(err)
		}
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, postgres.ErrDuplicateActivePayment) {
			// Lost the creation race for this order; the winner's record is
			// the answer.
			winner, findErr := s.paymentRepo.FindActiveByOrderID(ctx, cmd.OrderID)
			if findErr != nil {
				return nil, application.NewInternalError(findErr)
			}
			return winner, nil
		}
		if errors.Is(err, postgres.ErrDuplicateTransactionID) {
			return nil, err
		}
		return nil, application.NewInternalError(err)
	}

	s.logger.Info("payment recorded",
		"transaction_id", payment.TransactionID,
		"order_id", payment.OrderID,
		"status", payment.Status,
		"method", payment.Method,
	)

	if declineErr != nil {
		return payment, declineErr
	}
	return payment, nil
}
