package payments

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle of one mobile money collection.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusFailed    Status = "FAILED"
	StatusTimeout   Status = "TIMEOUT"
)

// Terminal reports whether no further polling can change the status.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed || s == StatusTimeout
}

// Payment is one mobile money collection attempt for a sale.
type Payment struct {
	ID          int64           `json:"id"`
	Reference   string          `json:"reference"`
	SaleID      int64           `json:"sale_id"`
	Phone       string          `json:"phone"`
	Amount      decimal.Decimal `json:"amount"`
	Status      Status          `json:"status"`
	GatewayRef  string          `json:"gateway_ref,omitempty"`
	Note        string          `json:"note,omitempty"`
	InitiatedAt time.Time       `json:"initiated_at"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
}

var (
	// ErrNotFound indicates a missing payment.
	ErrNotFound = errors.New("payments: not found")
	// ErrValidation indicates bad input.
	ErrValidation = errors.New("payments: invalid input")
	// ErrAlreadyResolved indicates a manual completion on a terminal payment.
	ErrAlreadyResolved = errors.New("payments: already resolved")
)
