package worker_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailstore/payment-service/internal/application"
	"github.com/retailstore/payment-service/internal/application/services"
	"github.com/retailstore/payment-service/internal/domain"
	"github.com/retailstore/payment-service/internal/worker"
)

func seedStalePending(t *testing.T, repo *services.MockPaymentRepository, id, orderID string) *domain.Payment {
	t.Helper()

	payment, err := domain.NewPayment(id, "txn-"+id, orderID, "user-001",
		decimal.NewFromFloat(25.00), "invoice")
	require.NoError(t, err)
	payment.CreatedAt = time.Now().Add(-time.Hour)

	require.NoError(t, repo.Create(context.Background(), payment))
	return payment
}

func newReconciler(repo *services.MockPaymentRepository, gw *services.MockGatewayClient) *worker.Reconciler {
	return worker.NewReconciler(repo, gw, time.Minute, 10, 5*time.Minute, slog.Default())
}

func TestReconciler_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("settles stale pending payment as COMPLETED", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gw := &services.MockGatewayClient{}
		seeded := seedStalePending(t, repo, "pay-1", "order-1")

		newReconciler(repo, gw).RunOnce(ctx)

		stored, err := repo.FindByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, stored.Status)
		require.NotNil(t, stored.GatewayRef)
		assert.Equal(t, "ch-123", *stored.GatewayRef)
		assert.Equal(t, 1, gw.GetCalls("Charge"))
	})

	t.Run("declined charge settles as FAILED", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gw := &services.MockGatewayClient{
			ChargeFn: func(ctx context.Context, req application.ChargeRequest, idempotencyKey string) (*application.ChargeResponse, error) {
				return nil, &application.GatewayError{Code: "card_declined", StatusCode: 402}
			},
		}
		seeded := seedStalePending(t, repo, "pay-1", "order-1")

		newReconciler(repo, gw).RunOnce(ctx)

		stored, err := repo.FindByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, stored.Status)
	})

	t.Run("gateway outage leaves payment PENDING for the next cycle", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gw := &services.MockGatewayClient{
			ChargeFn: func(ctx context.Context, req application.ChargeRequest, idempotencyKey string) (*application.ChargeResponse, error) {
				return nil, &application.GatewayError{Code: "gateway_unreachable", StatusCode: 0}
			},
		}
		seeded := seedStalePending(t, repo, "pay-1", "order-1")

		newReconciler(repo, gw).RunOnce(ctx)

		stored, err := repo.FindByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, stored.Status)
	})

	t.Run("ignores fresh pending payments", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gw := &services.MockGatewayClient{}

		payment, err := domain.NewPayment("pay-1", "txn-pay-1", "order-1", "user-001",
			decimal.NewFromFloat(25.00), "invoice")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, payment))

		newReconciler(repo, gw).RunOnce(ctx)

		assert.Equal(t, 0, gw.GetCalls("Charge"))
		stored, err := repo.FindByID(ctx, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, stored.Status)
	})

	t.Run("keys the charge by transaction ID", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		var gotKey string
		gw := &services.MockGatewayClient{
			ChargeFn: func(ctx context.Context, req application.ChargeRequest, idempotencyKey string) (*application.ChargeResponse, error) {
				gotKey = idempotencyKey
				return &application.ChargeResponse{Authorized: true, GatewayReference: "ch-1", CreatedAt: time.Now()}, nil
			},
		}
		seeded := seedStalePending(t, repo, "pay-1", "order-1")

		newReconciler(repo, gw).RunOnce(ctx)

		assert.Equal(t, seeded.TransactionID, gotKey)
	})

	t.Run("settles multiple payments in one cycle", func(t *testing.T) {
		repo := services.NewMockPaymentRepository()
		gw := &services.MockGatewayClient{}
		seedStalePending(t, repo, "pay-1", "order-1")
		seedStalePending(t, repo, "pay-2", "order-2")

		newReconciler(repo, gw).RunOnce(ctx)

		assert.Equal(t, 2, gw.GetCalls("Charge"))
	})
}

func TestReconciler_StartStopsOnCancel(t *testing.T) {
	repo := services.NewMockPaymentRepository()
	gw := &services.MockGatewayClient{}
	r := worker.NewReconciler(repo, gw, 10*time.Millisecond, 10, 5*time.Minute, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop after context cancellation")
	}
}
