// Package domain encodes the payment entity and its lifecycle rules.
package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the current state of a payment in its lifecycle
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusCompleted PaymentStatus = "COMPLETED"
	StatusFailed    PaymentStatus = "FAILED"
	StatusRefunded  PaymentStatus = "REFUNDED"
)

// instantMethods settle synchronously against the gateway; the rest are
// recorded as PENDING and settled by the reconciler.
var instantMethods = map[string]bool{
	"stripe":        true,
	"card":          true,
	"invoice":       false,
	"bank_transfer": false,
}

func KnownMethod(method string) bool {
	_, ok := instantMethods[method]
	return ok
}

func InstantMethod(method string) bool {
	return instantMethods[method]
}

type Payment struct {
	ID            string
	TransactionID string
	OrderID       string
	UserID        string
	Amount        decimal.Decimal
	Method        string
	Status        PaymentStatus

	GatewayRef *string

	CreatedAt  time.Time
	UpdatedAt  time.Time
	RefundedAt *time.Time

	// Version is bumped by the ledger store on every update and backs the
	// optimistic-concurrency check.
	Version int64
}

func NewPayment(id, transactionID, orderID, userID string, amount decimal.Decimal, method string) (*Payment, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: payment ID", ErrMissingRequiredField)
	}
	if transactionID == "" {
		return nil, fmt.Errorf("%w: transaction ID", ErrMissingRequiredField)
	}
	if orderID == "" {
		return nil, fmt.Errorf("%w: order ID", ErrMissingRequiredField)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID", ErrMissingRequiredField)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if !KnownMethod(method) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}

	now := time.Now()
	return &Payment{
		ID:            id,
		TransactionID: transactionID,
		OrderID:       orderID,
		UserID:        userID,
		Amount:        amount,
		Method:        method,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Complete records a successful gateway charge.
func (p *Payment) Complete(gatewayRef string, completedAt time.Time) error {
	if err := p.transition(StatusCompleted); err != nil {
		return err
	}
	p.GatewayRef = &gatewayRef
	p.UpdatedAt = completedAt
	return nil
}

// Fail records a gateway decline.
func (p *Payment) Fail() error {
	return p.transition(StatusFailed)
}

// Refund transitions the payment to refunded status and records when it happened.
func (p *Payment) Refund(refundedAt time.Time) error {
	if err := p.transition(StatusRefunded); err != nil {
		return err
	}
	p.RefundedAt = &refundedAt
	p.UpdatedAt = refundedAt
	return nil
}

func (p *Payment) transition(target PaymentStatus) error {
	if err := p.canTransitionTo(target); err != nil {
		return err
	}
	p.Status = target
	p.UpdatedAt = time.Now()
	return nil
}

// defines which payment statuses can be transitioned to
func (p *Payment) canTransitionTo(target PaymentStatus) error {
	switch p.Status {
	case StatusPending:
		return p.allow(target, StatusCompleted, StatusFailed)
	case StatusCompleted:
		return p.allow(target, StatusRefunded)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, target)
}

// Helper to check allowed state transitions
func (p *Payment) allow(target PaymentStatus, allowed ...PaymentStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, target)
}

// IsTerminal reports whether the payment can never change status again.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case StatusFailed, StatusRefunded:
		return true
	default:
		return false
	}
}

// Active payments block new payment attempts for the same order. A COMPLETED
// payment stays active until it is refunded.
func (p *Payment) IsActive() bool {
	return !p.IsTerminal()
}

// Reconstitute - Special constructor for loading from the ledger store
func Reconstitute(
	id, transactionID, orderID, userID string,
	amount decimal.Decimal,
	method string,
	status PaymentStatus,
	gatewayRef *string,
	createdAt, updatedAt time.Time,
	refundedAt *time.Time,
	version int64,
) *Payment {
	return &Payment{
		ID:            id,
		TransactionID: transactionID,
		OrderID:       orderID,
		UserID:        userID,
		Amount:        amount,
		Method:        method,
		Status:        status,
		GatewayRef:    gatewayRef,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
		RefundedAt:    refundedAt,
		Version:       version,
	}
}
