package services_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailstore/payment-service/internal/application"
	"github.com/retailstore/payment-service/internal/application/services"
	"github.com/retailstore/payment-service/internal/domain"
	"github.com/retailstore/payment-service/internal/infrastructure/persistence/postgres"
)

func newRefundService(repo *services.MockPaymentRepository, gw *services.MockGatewayClient) *services.RefundService {
	return services.NewRefundService(repo, gw, slog.Default())
}

// seedPayment stores a payment in the given status, charged through the
// default mock gateway when the status needs a gateway reference.
func seedPayment(t *testing.T, repo *services.MockPaymentRepository, status domain.PaymentStatus) *domain.Payment {
	t.Helper()

	payment, err := domain.NewPayment(
		"pay-123", "txn-456", "order-789", "user-001",
		decimal.NewFromFloat(49.99), "stripe",
	)
	require.NoError(t, err)

	switch status {
	case domain.StatusCompleted:
		require.NoError(t, payment.Complete("ch-123", time.Now()))
	case domain.StatusFailed:
		require.NoError(t, payment.Fail())
	case domain.StatusRefunded:
		require.NoError(t, payment.Complete("ch-123", time.Now()))
		require.NoError(t, payment.Refund(time.Now()))
	}

	require.NoError(t, repo.Create(context.Background(), payment))
	return payment
}

func TestRefundService_Refund(t *testing.T) {
	ctx := context.Background()

	t.Run("refunds a completed payment", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gw := &services.MockGatewayClient{}
		seeded := seedPayment(t, repo, domain.StatusCompleted)

		payment, err := newRefundService(repo, gw).Refund(ctx, seeded.ID)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusRefunded, payment.Status)
		assert.NotNil(t, payment.RefundedAt)
		assert.Equal(t, 1, gw.GetCalls("Refund"))

		stored, err := repo.FindByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRefunded, stored.Status)
	})

	t.Run("second refund returns the recorded result without calling the gateway", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gw := &services.MockGatewayClient{}
		seeded := seedPayment(t, repo, domain.StatusCompleted)
		svc := newRefundService(repo, gw)

		first, err := svc.Refund(ctx, seeded.ID)
		require.NoError(t, err)

		second, err := svc.Refund(ctx, seeded.ID)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusRefunded, second.Status)
		assert.Equal(t, first.RefundedAt.Unix(), second.RefundedAt.Unix())
		assert.Equal(t, 1, gw.GetCalls("Refund"))
	})

	t.Run("rejects refund of a pending payment", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gw := &services.MockGatewayClient{}
		seeded := seedPayment(t, repo, domain.StatusPending)

		_, err := newRefundService(repo, gw).Refund(ctx, seeded.ID)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, 0, gw.GetCalls("Refund"))
	})

	t.Run("rejects refund of a failed payment", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gw := &services.MockGatewayClient{}
		seeded := seedPayment(t, repo, domain.StatusFailed)

		_, err := newRefundService(repo, gw).Refund(ctx, seeded.ID)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("unknown payment ID", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gw := &services.MockGatewayClient{}

		_, err := newRefundService(repo, gw).Refund(ctx, "missing")

		assert.ErrorIs(t, err, postgres.ErrPaymentNotFound)
	})

	t.Run("gateway outage surfaces as unavailable", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gw := &services.MockGatewayClient{
			RefundFn: func(ctx context.Context, req application.RefundRequest, idempotencyKey string) (*application.RefundResponse, error) {
				return nil, &application.GatewayError{Code: "gateway_unreachable", StatusCode: 0}
			},
		}
		seeded := seedPayment(t, repo, domain.StatusCompleted)

		_, err := newRefundService(repo, gw).Refund(ctx, seeded.ID)

		require.Error(t, err)
		assert.Equal(t, 503, application.ToHTTPStatus(err))

		stored, findErr := repo.FindByID(ctx, seeded.ID)
		require.NoError(t, findErr)
		assert.Equal(t, domain.StatusCompleted, stored.Status)
	})

	t.Run("unrefunded success response is not persisted", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gw := &services.MockGatewayClient{
			RefundFn: func(ctx context.Context, req application.RefundRequest, idempotencyKey string) (*application.RefundResponse, error) {
				return &application.RefundResponse{Refunded: false}, nil
			},
		}
		seeded := seedPayment(t, repo, domain.StatusCompleted)

		_, err := newRefundService(repo, gw).Refund(ctx, seeded.ID)

		require.Error(t, err)
		assert.Equal(t, 500, application.ToHTTPStatus(err))

		stored, findErr := repo.FindByID(ctx, seeded.ID)
		require.NoError(t, findErr)
		assert.Equal(t, domain.StatusCompleted, stored.Status)
		assert.Nil(t, stored.RefundedAt)
	})

	t.Run("retries once after a version conflict", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gw := &services.MockGatewayClient{}
		seeded := seedPayment(t, repo, domain.StatusCompleted)

		conflicts := 1
		repo.UpdateFn = func(ctx context.Context, payment *domain.Payment) error {
			if conflicts > 0 {
				conflicts--
				return fmt.Errorf("%w: %s", postgres.ErrVersionConflict, payment.ID)
			}
			repo.UpdateFn = nil
			return repo.Update(ctx, payment)
		}

		payment, err := newRefundService(repo, gw).Refund(ctx, seeded.ID)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusRefunded, payment.Status)
	})

	t.Run("gives up after exhausting conflict retries", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gw := &services.MockGatewayClient{}
		seeded := seedPayment(t, repo, domain.StatusCompleted)

		repo.UpdateFn = func(ctx context.Context, payment *domain.Payment) error {
			return fmt.Errorf("%w: %s", postgres.ErrVersionConflict, payment.ID)
		}

		_, err := newRefundService(repo, gw).Refund(ctx, seeded.ID)

		require.Error(t, err)
		assert.Equal(t, 409, application.ToHTTPStatus(err))
	})
}
