package services

import "github.com/shopspring/decimal"

// ProcessCommand carries a validated payment request into the process flow.
type ProcessCommand struct {
	OrderID string
	UserID  string
	Amount  decimal.Decimal
	Method  string
}
