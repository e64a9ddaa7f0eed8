package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/retailstore/payment-service/internal/domain"
	"github.com/retailstore/payment-service/internal/infrastructure/persistence"
)

var (
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrDuplicateTransactionID = errors.New("transaction id already exists")
	ErrDuplicateActivePayment = errors.New("order already has an active payment")
	ErrVersionConflict        = errors.New("payment was concurrently modified")
)

const paymentColumns = `id, transaction_id, order_id, user_id, amount, payment_method, status,
	       gateway_ref, created_at, updated_at, refunded_at, version`

// PaymentRepository runs against any Executor, so the same code serves a pool
// or a transaction.
type PaymentRepository struct {
	db persistence.Executor
}

func NewPaymentRepository(db persistence.Executor) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a new payment record. The unique index on transaction_id and
// the partial unique index on active order payments are the serialization
// points for concurrent creates.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
	        id, transaction_id, order_id, user_id, amount, payment_method, status,
	        gateway_ref, created_at, updated_at, refunded_at, version
	    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	m := toDBModel(payment)
	if m.Version == 0 {
		m.Version = 1
	}
	_, err := r.db.Exec(ctx, query,
		m.ID,
		m.TransactionID,
		m.OrderID,
		m.UserID,
		m.Amount,
		m.PaymentMethod,
		m.Status,
		m.GatewayRef,
		m.CreatedAt,
		m.UpdatedAt,
		m.RefundedAt,
		m.Version,
	)

	if err != nil {
		switch persistence.ViolatedConstraint(err) {
		case "payments_transaction_id_key":
			return fmt.Errorf("%w: %s", ErrDuplicateTransactionID, m.TransactionID)
		case "payments_order_active_idx":
			return fmt.Errorf("%w: order %s", ErrDuplicateActivePayment, m.OrderID)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	payment.Version = m.Version
	return nil
}

// FindByID retrieves a payment by its surrogate ID
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	return scanPayment(row)
}

// FindByTransactionID retrieves a payment by its external transaction ID
func (r *PaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`

	row := r.db.QueryRow(ctx, query, transactionID)
	return scanPayment(row)
}

// FindByOrderID retrieves the most recent payment for an order
func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments WHERE order_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	row := r.db.QueryRow(ctx, query, orderID)
	return scanPayment(row)
}

// FindActiveByOrderID retrieves the non-terminal payment for an order, if any.
// The partial unique index guarantees at most one exists.
func (r *PaymentRepository) FindActiveByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE order_id = $1 AND status IN ('PENDING', 'COMPLETED')
	`

	row := r.db.QueryRow(ctx, query, orderID)
	return scanPayment(row)
}

// FindStalePending finds PENDING payments older than the cutoff, oldest first.
// Feeds the reconciler.
func (r *PaymentRepository) FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Payment, error) {
	cutoff := time.Now().Add(-olderThan)

	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale pending payments: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Payment, error) {
		var m PaymentModel
		err := row.Scan(
			&m.ID, &m.TransactionID, &m.OrderID, &m.UserID, &m.Amount, &m.PaymentMethod, &m.Status,
			&m.GatewayRef, &m.CreatedAt, &m.UpdatedAt, &m.RefundedAt, &m.Version,
		)
		return toDomainModel(m), err
	})

	if err != nil {
		return nil, fmt.Errorf("scan stale pending payments: %w", err)
	}
	return results, nil
}

// Update persists the mutable fields of an existing payment. The version
// predicate is the optimistic-concurrency check: if another writer got there
// first, zero rows match and the caller sees ErrVersionConflict.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, gateway_ref = $2, refunded_at = $3, updated_at = $4,
		    version = version + 1
		WHERE id = $5 AND version = $6
	`

	m := toDBModel(payment)
	result, err := r.db.Exec(ctx, query,
		m.Status,
		m.GatewayRef,
		m.RefundedAt,
		m.UpdatedAt,
		m.ID,
		m.Version,
	)

	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a vanished row from a lost race.
		if _, findErr := r.FindByID(ctx, m.ID); errors.Is(findErr, ErrPaymentNotFound) {
			return fmt.Errorf("%w: %s", ErrPaymentNotFound, m.ID)
		}
		return fmt.Errorf("%w: %s", ErrVersionConflict, m.ID)
	}

	payment.Version = m.Version + 1
	return nil
}

// scanPayment converts a database row into a domain Payment.
// Returns ErrPaymentNotFound if the row doesn't exist.
func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var m PaymentModel
	err := row.Scan(
		&m.ID, &m.TransactionID, &m.OrderID, &m.UserID, &m.Amount, &m.PaymentMethod, &m.Status,
		&m.GatewayRef, &m.CreatedAt, &m.UpdatedAt, &m.RefundedAt, &m.Version,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return toDomainModel(m), nil
}
