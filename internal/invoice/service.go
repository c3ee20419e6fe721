package invoice

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

// RepositoryPort describes invoice persistence used by the service.
type RepositoryPort interface {
	CreateHeader(ctx context.Context, inv Invoice) (int64, error)
	DeleteHeader(ctx context.Context, id int64) error
	InsertItems(ctx context.Context, invoiceID int64, items []Item) error
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context, filters ListFilters) ([]Invoice, int, error)
}

// CatalogPort exposes the product operations the commit workflow needs.
type CatalogPort interface {
	FindByNameBatch(ctx context.Context, name, batchNumber string) (catalog.Product, error)
	Create(ctx context.Context, p catalog.Product) (catalog.Product, error)
	IncrementStock(ctx context.Context, id int64, delta int64, fields catalog.PricingFields) error
	SetStock(ctx context.Context, id int64, stock int64) error
}

// ActivityPort abstracts activity logging.
type ActivityPort interface {
	Record(ctx context.Context, entry shared.ActivityEntry) error
}

// RefreshPort signals list views that a domain changed.
type RefreshPort interface {
	Bump(ctx context.Context, domains ...string) error
}

// MetricsPort counts commits that ended in rollback.
type MetricsPort interface {
	InvoiceRolledBack()
}

// ListFilters narrows invoice listings.
type ListFilters struct {
	Supplier string
	From     time.Time
	To       time.Time
	Page     int
	PerPage  int
}

// Service orchestrates the invoice commit workflow.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	products CatalogPort
	activity ActivityPort
	refresh  RefreshPort
	metrics  MetricsPort
}

// SetMetrics attaches the optional rollback counter.
func (s *Service) SetMetrics(metrics MetricsPort) {
	s.metrics = metrics
}

// NewService builds Service.
func NewService(logger *slog.Logger, repo RepositoryPort, products CatalogPort, activity ActivityPort, refresh RefreshPort) *Service {
	return &Service{logger: logger, repo: repo, products: products, activity: activity, refresh: refresh}
}

// CommitInput is one invoice commit attempt.
type CommitInput struct {
	InvoiceNumber string
	Supplier      string
	InvoiceDate   time.Time
	ActorID       int64
	ActorName     string
	Lines         []LineInput
}

// Commit runs the invoice workflow: validate, create the header, upsert a
// product per line, persist the lines, then log and signal. Any persistence
// failure after the header exists triggers best-effort compensation: the
// header is deleted and every touched product has its stock restored to the
// recorded pre-mutation value. Pricing overwrites on existing products are
// deliberately not reverted; the next invoice for the product overwrites
// them again anyway.
func (s *Service) Commit(ctx context.Context, input CommitInput) (Invoice, error) {
	if strings.TrimSpace(input.InvoiceNumber) == "" {
		return Invoice{}, fmt.Errorf("%w: invoice number required", ErrValidation)
	}
	if strings.TrimSpace(input.Supplier) == "" {
		return Invoice{}, fmt.Errorf("%w: supplier required", ErrValidation)
	}
	if len(input.Lines) == 0 {
		return Invoice{}, fmt.Errorf("%w: at least one line required", ErrValidation)
	}

	items := make([]Item, 0, len(input.Lines))
	total := decimal.Zero
	for _, line := range input.Lines {
		item, err := BuildItem(line)
		if err != nil {
			return Invoice{}, err
		}
		items = append(items, item)
		total = total.Add(item.TotalCost)
	}

	inv := Invoice{
		InvoiceNumber: strings.TrimSpace(input.InvoiceNumber),
		Supplier:      strings.TrimSpace(input.Supplier),
		InvoiceDate:   defaultTime(input.InvoiceDate),
		TotalAmount:   total,
		UserID:        input.ActorID,
		UserName:      input.ActorName,
	}

	sg := newSaga(s.logger)

	headerID, err := s.repo.CreateHeader(ctx, inv)
	if err != nil {
		// Nothing was mutated yet, nothing to roll back.
		return Invoice{}, fmt.Errorf("invoice: create header: %w", err)
	}
	inv.ID = headerID
	sg.advance(StateHeaderCreated, "create header", func(ctx context.Context) error {
		return s.repo.DeleteHeader(ctx, headerID)
	})

	for i := range items {
		if err := s.upsertProduct(ctx, sg, &items[i]); err != nil {
			s.abort(ctx, sg)
			return Invoice{}, fmt.Errorf("%w: %v", ErrRolledBack, err)
		}
		items[i].InvoiceID = headerID
		sg.advance(StateItemStaged, "", nil)
	}

	if err := s.repo.InsertItems(ctx, headerID, items); err != nil {
		s.abort(ctx, sg)
		return Invoice{}, fmt.Errorf("%w: %v", ErrRolledBack, err)
	}
	sg.advance(StateItemsPersisted, "", nil)
	sg.advance(StateCommitted, "", nil)

	inv.Items = items
	s.recordCommit(ctx, inv)
	if s.refresh != nil {
		_ = s.refresh.Bump(ctx, "products", "invoices")
	}
	return inv, nil
}

func (s *Service) abort(ctx context.Context, sg *saga) {
	sg.rollback(ctx)
	if s.metrics != nil {
		s.metrics.InvoiceRolledBack()
	}
}

// upsertProduct applies one invoice line to the catalog: existing (name,
// batch) rows get stock increased and pricing overwritten (last invoice
// wins), unseen pairs become new products. The undo registered with the saga
// restores only the recorded pre-mutation stock.
func (s *Service) upsertProduct(ctx context.Context, sg *saga, item *Item) error {
	product, err := s.products.FindByNameBatch(ctx, item.ProductName, item.BatchNumber)
	switch {
	case err == nil:
		priorStock := product.CurrentStock
		fields := catalog.PricingFields{
			CostPrice:              item.CostPrice,
			DiscountedCostPrice:    item.DiscountedCostPrice,
			SellingPrice:           item.SellingPrice,
			DiscountedSellingPrice: item.DiscountedSellingPrice,
			VATRate:                item.VATRate,
			Category:               item.Category,
			ExpiryDate:             item.ExpiryDate,
		}
		if err := s.products.IncrementStock(ctx, product.ID, item.Quantity, fields); err != nil {
			return err
		}
		item.ProductID = product.ID
		if item.Barcode == "" {
			item.Barcode = product.Barcode
		}
		productID := product.ID
		sg.advance(StateProductUpsert, fmt.Sprintf("restock product %d", productID),
			func(ctx context.Context) error {
				return s.products.SetStock(ctx, productID, priorStock)
			})
		return nil

	case errors.Is(err, catalog.ErrNotFound):
		barcode := item.Barcode
		if barcode == "" {
			barcode = catalog.SynthesizeBarcode()
		}
		created, err := s.products.Create(ctx, catalog.Product{
			Name:                   item.ProductName,
			Category:               item.Category,
			BatchNumber:            item.BatchNumber,
			ExpiryDate:             item.ExpiryDate,
			CurrentStock:           item.Quantity,
			CostPrice:              item.CostPrice,
			DiscountedCostPrice:    item.DiscountedCostPrice,
			SellingPrice:           item.SellingPrice,
			DiscountedSellingPrice: item.DiscountedSellingPrice,
			VATRate:                item.VATRate,
			Barcode:                barcode,
		})
		if err != nil {
			return err
		}
		item.ProductID = created.ID
		item.Barcode = created.Barcode
		createdID := created.ID
		// Products are never hard-deleted; undo returns the new row to zero stock.
		sg.advance(StateProductUpsert, fmt.Sprintf("zero new product %d", createdID),
			func(ctx context.Context) error {
				return s.products.SetStock(ctx, createdID, 0)
			})
		return nil

	default:
		return err
	}
}

// Get loads one invoice with its items.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	if id <= 0 {
		return Invoice{}, ErrValidation
	}
	return s.repo.Get(ctx, id)
}

// List returns a page of invoice headers.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Invoice, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) recordCommit(ctx context.Context, inv Invoice) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, shared.ActivityEntry{
		ActorID:   inv.UserID,
		ActorName: inv.UserName,
		Action:    "INVOICE_CREATE",
		Entity:    "invoice",
		EntityID:  fmt.Sprintf("%d", inv.ID),
		Detail: fmt.Sprintf("Invoice %s from %s: %d items, total %s",
			inv.InvoiceNumber, inv.Supplier, len(inv.Items), inv.TotalAmount.StringFixed(2)),
		Meta: map[string]any{
			"invoice_number": inv.InvoiceNumber,
			"supplier":       inv.Supplier,
			"total_amount":   inv.TotalAmount.String(),
			"item_count":     len(inv.Items),
		},
	})
}

func defaultTime(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now()
	}
	return value
}
