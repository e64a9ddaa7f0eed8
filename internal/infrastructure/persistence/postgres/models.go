package postgres

import (
	"time"

	"github.com/retailstore/payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentModel mirrors the payments table row.
//
// Schema:
//
//	CREATE TABLE payments (
//	    id             UUID PRIMARY KEY,
//	    transaction_id VARCHAR(100) NOT NULL,
//	    order_id       VARCHAR(100) NOT NULL,
//	    user_id        VARCHAR(100) NOT NULL,
//	    amount         NUMERIC(10, 2) NOT NULL CHECK (amount > 0),
//	    payment_method VARCHAR(50) NOT NULL,
//	    status         VARCHAR(20) NOT NULL,
//	    gateway_ref    VARCHAR(100),
//	    created_at     TIMESTAMPTZ NOT NULL,
//	    updated_at     TIMESTAMPTZ NOT NULL,
//	    refunded_at    TIMESTAMPTZ,
//	    version        BIGINT NOT NULL DEFAULT 1
//	);
//	CREATE UNIQUE INDEX payments_transaction_id_key ON payments (transaction_id);
//	CREATE INDEX payments_order_id_idx ON payments (order_id);
//	CREATE UNIQUE INDEX payments_order_active_idx ON payments (order_id)
//	    WHERE status IN ('PENDING', 'COMPLETED');
type PaymentModel struct {
	ID            string
	TransactionID string
	OrderID       string
	UserID        string
	Amount        decimal.Decimal
	PaymentMethod string
	Status        string
	GatewayRef    *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	RefundedAt    *time.Time
	Version       int64
}

func toDBModel(p *domain.Payment) PaymentModel {
	return PaymentModel{
		ID:            p.ID,
		TransactionID: p.TransactionID,
		OrderID:       p.OrderID,
		UserID:        p.UserID,
		Amount:        p.Amount,
		PaymentMethod: p.Method,
		Status:        string(p.Status),
		GatewayRef:    p.GatewayRef,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		RefundedAt:    p.RefundedAt,
		Version:       p.Version,
	}
}

func toDomainModel(m PaymentModel) *domain.Payment {
	return domain.Reconstitute(
		m.ID,
		m.TransactionID,
		m.OrderID,
		m.UserID,
		m.Amount,
		m.PaymentMethod,
		domain.PaymentStatus(m.Status),
		m.GatewayRef,
		m.CreatedAt,
		m.UpdatedAt,
		m.RefundedAt,
		m.Version,
	)
}
