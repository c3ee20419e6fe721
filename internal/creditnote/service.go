package creditnote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmapos/pharmapos/internal/catalog"
	"github.com/pharmapos/pharmapos/internal/shared"
)

// RepositoryPort describes credit note persistence.
type RepositoryPort interface {
	CreateHeader(ctx context.Context, note CreditNote) (int64, error)
	InsertItem(ctx context.Context, item Item) error
	Get(ctx context.Context, id int64) (CreditNote, error)
	List(ctx context.Context, filters ListFilters) ([]CreditNote, int, error)
}

// CatalogPort exposes the product operations the return workflow needs.
type CatalogPort interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
	DecrementStock(ctx context.Context, id int64, qty int64) error
}

// ActivityPort abstracts activity logging.
type ActivityPort interface {
	Record(ctx context.Context, entry shared.ActivityEntry) error
}

// RefreshPort signals list views that a domain changed.
type RefreshPort interface {
	Bump(ctx context.Context, domains ...string) error
}

// ListFilters narrows credit note listings.
type ListFilters struct {
	Supplier string
	From     time.Time
	To       time.Time
	Page     int
	PerPage  int
}

// Service runs the credit note workflow.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	products CatalogPort
	activity ActivityPort
	refresh  RefreshPort
}

// NewService builds Service.
func NewService(logger *slog.Logger, repo RepositoryPort, products CatalogPort, activity ActivityPort, refresh RefreshPort) *Service {
	return &Service{logger: logger, repo: repo, products: products, activity: activity, refresh: refresh}
}

// CommitInput is one credit note commit attempt.
type CommitInput struct {
	CreditNoteNumber string
	Supplier         string
	ReturnDate       time.Time
	ActorID          int64
	ActorName        string
	Lines            []LineInput
}

// Commit runs the return flow: price every line against the current catalog,
// create the header with the fixed total, then decrement stock and insert
// each line in order. Unlike the invoice workflow there is no compensation:
// a line that would drive stock negative aborts the remaining lines, and
// decrements already applied in the same call stand. The stock floor itself
// is enforced at the storage layer, so the product can never read negative.
func (s *Service) Commit(ctx context.Context, input CommitInput) (CreditNote, error) {
	if strings.TrimSpace(input.CreditNoteNumber) == "" {
		return CreditNote{}, fmt.Errorf("%w: credit note number required", ErrValidation)
	}
	if strings.TrimSpace(input.Supplier) == "" {
		return CreditNote{}, fmt.Errorf("%w: supplier required", ErrValidation)
	}
	if len(input.Lines) == 0 {
		return CreditNote{}, fmt.Errorf("%w: at least one line required", ErrValidation)
	}

	items := make([]Item, 0, len(input.Lines))
	total := decimal.Zero
	for _, line := range input.Lines {
		if line.ProductID <= 0 {
			return CreditNote{}, fmt.Errorf("%w: product id required", ErrValidation)
		}
		if line.Quantity <= 0 {
			return CreditNote{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}
		product, err := s.products.Get(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return CreditNote{}, fmt.Errorf("%w: product %d not found", ErrValidation, line.ProductID)
			}
			return CreditNote{}, fmt.Errorf("creditnote: load product %d: %w", line.ProductID, err)
		}
		if product.CurrentStock < line.Quantity {
			return CreditNote{}, fmt.Errorf("%w: %s has %d in stock, %d requested",
				ErrInsufficientStock, product.Name, product.CurrentStock, line.Quantity)
		}
		qty := decimal.NewFromInt(line.Quantity)
		items = append(items, Item{
			ProductID:   product.ID,
			ProductName: product.Name,
			BatchNumber: product.BatchNumber,
			Quantity:    line.Quantity,
			CostPrice:   product.CostPrice,
			TotalCredit: qty.Mul(product.CostPrice),
			Reason:      strings.TrimSpace(line.Reason),
		})
		total = total.Add(items[len(items)-1].TotalCredit)
	}

	note := CreditNote{
		CreditNoteNumber: strings.TrimSpace(input.CreditNoteNumber),
		Supplier:         strings.TrimSpace(input.Supplier),
		ReturnDate:       defaultTime(input.ReturnDate),
		TotalAmount:      total,
		UserID:           input.ActorID,
		UserName:         input.ActorName,
	}

	headerID, err := s.repo.CreateHeader(ctx, note)
	if err != nil {
		return CreditNote{}, fmt.Errorf("creditnote: create header: %w", err)
	}
	note.ID = headerID

	for i := range items {
		items[i].CreditNoteID = headerID
		if err := s.products.DecrementStock(ctx, items[i].ProductID, items[i].Quantity); err != nil {
			if errors.Is(err, catalog.ErrInsufficientStock) {
				return CreditNote{}, fmt.Errorf("%w: %s", ErrInsufficientStock, items[i].ProductName)
			}
			return CreditNote{}, fmt.Errorf("creditnote: decrement %s: %w", items[i].ProductName, err)
		}
		if err := s.repo.InsertItem(ctx, items[i]); err != nil {
			return CreditNote{}, fmt.Errorf("creditnote: insert line %s: %w", items[i].ProductName, err)
		}
	}

	note.Items = items
	s.recordCommit(ctx, note)
	if s.refresh != nil {
		_ = s.refresh.Bump(ctx, "products", "credit_notes")
	}
	return note, nil
}

// Get loads one credit note with its items.
func (s *Service) Get(ctx context.Context, id int64) (CreditNote, error) {
	if id <= 0 {
		return CreditNote{}, ErrValidation
	}
	return s.repo.Get(ctx, id)
}

// List returns a page of credit note headers.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]CreditNote, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) recordCommit(ctx context.Context, note CreditNote) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, shared.ActivityEntry{
		ActorID:   note.UserID,
		ActorName: note.UserName,
		Action:    "CREDIT_NOTE_CREATE",
		Entity:    "credit_note",
		EntityID:  fmt.Sprintf("%d", note.ID),
		Detail: fmt.Sprintf("Credit note %s to %s: %d items, total %s",
			note.CreditNoteNumber, note.Supplier, len(note.Items), note.TotalAmount.StringFixed(2)),
		Meta: map[string]any{
			"credit_note_number": note.CreditNoteNumber,
			"supplier":           note.Supplier,
			"total_amount":       note.TotalAmount.String(),
			"item_count":         len(note.Items),
		},
	})
}

func defaultTime(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now()
	}
	return value
}
