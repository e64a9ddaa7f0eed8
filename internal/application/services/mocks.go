package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/retailstore/payment-service/internal/application"
	"github.com/retailstore/payment-service/internal/domain"
	"github.com/retailstore/payment-service/internal/infrastructure/persistence/postgres"
)

// MockPaymentRepository is an in-memory ledger that mirrors the postgres
// repository's contracts: transaction-id uniqueness, the single-active-payment
// rule per order, and the version check on update.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	CreateFn              func(ctx context.Context, payment *domain.Payment) error
	FindByIDFn            func(ctx context.Context, id string) (*domain.Payment, error)
	FindByTransactionIDFn func(ctx context.Context, transactionID string) (*domain.Payment, error)
	FindByOrderIDFn       func(ctx context.Context, orderID string) (*domain.Payment, error)
	FindActiveByOrderIDFn func(ctx context.Context, orderID string) (*domain.Payment, error)
	FindStalePendingFn    func(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Payment, error)
	UpdateFn              func(ctx context.Context, payment *domain.Payment) error
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

func copyPayment(p *domain.Payment) *domain.Payment {
	cp := *p
	if p.GatewayRef != nil {
		ref := *p.GatewayRef
		cp.GatewayRef = &ref
	}
	if p.RefundedAt != nil {
		at := *p.RefundedAt
		cp.RefundedAt = &at
	}
	return &cp
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, payment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.TransactionID == payment.TransactionID {
			return fmt.Errorf("%w: %s", postgres.ErrDuplicateTransactionID, payment.TransactionID)
		}
		if p.OrderID == payment.OrderID && p.IsActive() && payment.IsActive() {
			return fmt.Errorf("%w: order %s", postgres.ErrDuplicateActivePayment, payment.OrderID)
		}
	}
	payment.Version = 1
	m.payments[payment.ID] = copyPayment(payment)
	return nil
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.payments[id]; ok {
		return copyPayment(p), nil
	}
	return nil, postgres.ErrPaymentNotFound
}

func (m *MockPaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	if m.FindByTransactionIDFn != nil {
		return m.FindByTransactionIDFn(ctx, transactionID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.TransactionID == transactionID {
			return copyPayment(p), nil
		}
	}
	return nil, postgres.ErrPaymentNotFound
}

func (m *MockPaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	if m.FindByOrderIDFn != nil {
		return m.FindByOrderIDFn(ctx, orderID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.Payment
	for _, p := range m.payments {
		if p.OrderID != orderID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, postgres.ErrPaymentNotFound
	}
	return copyPayment(latest), nil
}

func (m *MockPaymentRepository) FindActiveByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	if m.FindActiveByOrderIDFn != nil {
		return m.FindActiveByOrderIDFn(ctx, orderID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.OrderID == orderID && p.IsActive() {
			return copyPayment(p), nil
		}
	}
	return nil, postgres.ErrPaymentNotFound
}

func (m *MockPaymentRepository) FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Payment, error) {
	if m.FindStalePendingFn != nil {
		return m.FindStalePendingFn(ctx, olderThan, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := time.Now().Add(-olderThan)
	var stale []*domain.Payment
	for _, p := range m.payments {
		if p.Status == domain.StatusPending && p.CreatedAt.Before(cutoff) {
			stale = append(stale, copyPayment(p))
		}
		if len(stale) == limit {
			break
		}
	}
	return stale, nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, payment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.payments[payment.ID]
	if !ok {
		return postgres.ErrPaymentNotFound
	}
	if existing.Version != payment.Version {
		return fmt.Errorf("%w: %s", postgres.ErrVersionConflict, payment.ID)
	}
	payment.Version++
	m.payments[payment.ID] = copyPayment(payment)
	return nil
}

// MockGatewayClient counts calls and authorizes everything unless a Fn is set.
type MockGatewayClient struct {
	mu    sync.Mutex
	calls map[string]int
	Delay time.Duration

	ChargeFn func(ctx context.Context, req application.ChargeRequest, idempotencyKey string) (*application.ChargeResponse, error)
	RefundFn func(ctx context.Context, req application.RefundRequest, idempotencyKey string) (*application.RefundResponse, error)
}

func (m *MockGatewayClient) inc(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

func (m *MockGatewayClient) GetCalls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockGatewayClient) Charge(ctx context.Context, req application.ChargeRequest, idempotencyKey string) (*application.ChargeResponse, error) {
	m.inc("Charge")
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.ChargeFn != nil {
		return m.ChargeFn(ctx, req, idempotencyKey)
	}
	return &application.ChargeResponse{
		Authorized:       true,
		GatewayReference: "ch-123",
		CreatedAt:        time.Now(),
	}, nil
}

func (m *MockGatewayClient) Refund(ctx context.Context, req application.RefundRequest, idempotencyKey string) (*application.RefundResponse, error) {
	m.inc("Refund")
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.RefundFn != nil {
		return m.RefundFn(ctx, req, idempotencyKey)
	}
	return &application.RefundResponse{
		Refunded:   true,
		RefundID:   "ref-123",
		RefundedAt: time.Now(),
	}, nil
}
