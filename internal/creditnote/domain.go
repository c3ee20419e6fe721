package creditnote

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// CreditNote is a return-to-supplier record. Committing one decreases stock
// for every line. The total amount is fixed at creation and never recomputed.
type CreditNote struct {
	ID               int64           `json:"id"`
	CreditNoteNumber string          `json:"credit_note_number"`
	Supplier         string          `json:"supplier"`
	ReturnDate       time.Time       `json:"return_date"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	UserID           int64           `json:"user_id"`
	UserName         string          `json:"user_name"`
	Items            []Item          `json:"items,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Item is one returned line. TotalCredit is quantity times the product's
// cost price at return time, never entered directly.
type Item struct {
	ID           int64           `json:"id"`
	CreditNoteID int64           `json:"credit_note_id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	BatchNumber  string          `json:"batch_number"`
	Quantity     int64           `json:"quantity"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	TotalCredit  decimal.Decimal `json:"total_credit"`
	Reason       string          `json:"reason"`
}

// LineInput is a raw return line as entered by the operator.
type LineInput struct {
	ProductID int64
	Quantity  int64
	Reason    string
}

var (
	// ErrValidation indicates the commit was rejected before any mutation.
	ErrValidation = errors.New("creditnote: invalid input")
	// ErrNotFound indicates a missing credit note.
	ErrNotFound = errors.New("creditnote: not found")
	// ErrInsufficientStock indicates a line would drive stock negative. The
	// commit aborts at that line; earlier decrements in the same call stand.
	ErrInsufficientStock = errors.New("creditnote: insufficient stock")
)
