package rest

import (
	"time"

	"github.com/retailstore/payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

type APIResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type ProcessRequest struct {
	OrderID       string          `json:"orderId" validate:"required"`
	UserID        string          `json:"userId" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod" validate:"required"`
}

type Payment struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transactionId"`
	OrderID       string          `json:"orderId"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
	Status        string          `json:"status"`
	GatewayRef    string          `json:"gatewayReference,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	RefundedAt    *time.Time      `json:"refundedAt,omitempty"`
}

type RefundResult struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	RefundedAt *time.Time `json:"refundedAt"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func ToAPIPayment(p *domain.Payment) Payment {
	apiPayment := Payment{
		ID:            p.ID,
		TransactionID: p.TransactionID,
		OrderID:       p.OrderID,
		UserID:        p.UserID,
		Amount:        p.Amount,
		PaymentMethod: p.Method,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		RefundedAt:    p.RefundedAt,
	}

	if p.GatewayRef != nil {
		apiPayment.GatewayRef = *p.GatewayRef
	}

	return apiPayment
}
