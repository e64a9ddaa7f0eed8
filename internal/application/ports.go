package application

import (
	"context"
	"time"

	"github.com/retailstore/payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// GatewayClient is the port for the external payment processor.
type GatewayClient interface {
	Charge(ctx context.Context, req ChargeRequest, idempotencyKey string) (*ChargeResponse, error)
	Refund(ctx context.Context, req RefundRequest, idempotencyKey string) (*RefundResponse, error)
}

// PaymentRepository is the port for the ledger store.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	FindByID(ctx context.Context, id string) (*domain.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
	FindActiveByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
	FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Payment, error)
	Update(ctx context.Context, payment *domain.Payment) error
}

type ChargeRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

type ChargeResponse struct {
	Authorized       bool      `json:"authorized"`
	GatewayReference string    `json:"gateway_reference"`
	CreatedAt        time.Time `json:"created_at"`
}

type RefundRequest struct {
	GatewayReference string `json:"gateway_reference"`
}

type RefundResponse struct {
	Refunded   bool      `json:"refunded"`
	RefundID   string    `json:"refund_id"`
	RefundedAt time.Time `json:"refunded_at"`
}
