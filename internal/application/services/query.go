package services

import (
	"context"

	"github.com/retailstore/payment-service/internal/application"
	"github.com/retailstore/payment-service/internal/domain"
)

type QueryService struct {
	paymentRepo application.PaymentRepository
}

func NewQueryService(paymentRepo application.PaymentRepository) *QueryService {
	return &QueryService{paymentRepo: paymentRepo}
}

// GetByTransactionID retrieves a payment by its external transaction ID
func (s *QueryService) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	return s.paymentRepo.FindByTransactionID(ctx, transactionID)
}

// GetByOrderID retrieves the most recent payment for an order
func (s *QueryService) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return s.paymentRepo.FindByOrderID(ctx, orderID)
}
