package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmapos/pharmapos/internal/shared"
)

// DefaultVATRate applies when a product is created without an explicit rate.
var DefaultVATRate = decimal.NewFromInt(16)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Product, error)
	FindByNameBatch(ctx context.Context, name, batchNumber string) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, id int64, p Product) error
	IncrementStock(ctx context.Context, id int64, delta int64, fields PricingFields) error
	DecrementStock(ctx context.Context, id int64, qty int64) error
	SetStock(ctx context.Context, id int64, stock int64) error
	List(ctx context.Context, filters ListFilters) ([]Product, int, error)
	LowStock(ctx context.Context, threshold int64, limit int) ([]Product, error)
	Expiring(ctx context.Context, cutoff time.Time, limit int) ([]Product, error)
}

// ActivityPort abstracts activity logging.
type ActivityPort interface {
	Record(ctx context.Context, entry shared.ActivityEntry) error
}

// RefreshPort signals list views that a domain changed.
type RefreshPort interface {
	Bump(ctx context.Context, domains ...string) error
}

// Service coordinates catalog operations.
type Service struct {
	repo     RepositoryPort
	activity ActivityPort
	refresh  RefreshPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, activity ActivityPort, refresh RefreshPort) *Service {
	return &Service{repo: repo, activity: activity, refresh: refresh}
}

// List returns a page of products.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

// Get loads a product by ID.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrValidation
	}
	return s.repo.Get(ctx, id)
}

// Create validates and inserts a product, synthesizing a barcode when the
// supplier did not provide one.
func (s *Service) Create(ctx context.Context, p Product, actorID int64) (Product, error) {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.BatchNumber) == "" {
		return Product{}, fmt.Errorf("%w: name and batch number required", ErrValidation)
	}
	if p.CurrentStock < 0 {
		return Product{}, fmt.Errorf("%w: stock must be >= 0", ErrValidation)
	}
	if p.VATRate.Sign() == 0 {
		p.VATRate = DefaultVATRate
	}
	if p.DiscountedCostPrice.IsZero() {
		p.DiscountedCostPrice = p.CostPrice
	}
	if p.Barcode == "" {
		p.Barcode = SynthesizeBarcode()
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, actorID, "PRODUCT_CREATE", created.ID,
		fmt.Sprintf("Product %s batch %s created", created.Name, created.BatchNumber),
		map[string]any{"stock": created.CurrentStock})
	s.bump(ctx)
	return created, nil
}

// Update validates and overwrites a product.
func (s *Service) Update(ctx context.Context, id int64, p Product, actorID int64) error {
	if id <= 0 {
		return ErrValidation
	}
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.BatchNumber) == "" {
		return fmt.Errorf("%w: name and batch number required", ErrValidation)
	}
	if err := s.repo.Update(ctx, id, p); err != nil {
		return err
	}
	s.record(ctx, actorID, "PRODUCT_UPDATE", id,
		fmt.Sprintf("Product %s batch %s updated", p.Name, p.BatchNumber), nil)
	s.bump(ctx)
	return nil
}

// AdjustStock applies a manual stock correction. Negative deltas fail closed
// when they would drive stock below zero.
func (s *Service) AdjustStock(ctx context.Context, id int64, delta int64, reason string, actorID int64) (Product, error) {
	if delta == 0 {
		return Product{}, fmt.Errorf("%w: delta must be non zero", ErrValidation)
	}
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if delta > 0 {
		fields := PricingFields{
			CostPrice:              product.CostPrice,
			DiscountedCostPrice:    product.DiscountedCostPrice,
			SellingPrice:           product.SellingPrice,
			DiscountedSellingPrice: product.DiscountedSellingPrice,
			VATRate:                product.VATRate,
			Category:               product.Category,
			ExpiryDate:             product.ExpiryDate,
		}
		if err := s.repo.IncrementStock(ctx, id, delta, fields); err != nil {
			return Product{}, err
		}
	} else {
		if err := s.repo.DecrementStock(ctx, id, -delta); err != nil {
			return Product{}, err
		}
	}
	s.record(ctx, actorID, "STOCK_ADJUST", id,
		fmt.Sprintf("Stock of %s adjusted by %d: %s", product.Name, delta, reason),
		map[string]any{"delta": delta})
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// LowStock lists products at or below the threshold.
func (s *Service) LowStock(ctx context.Context, threshold int64, limit int) ([]Product, error) {
	if threshold < 0 {
		threshold = 0
	}
	return s.repo.LowStock(ctx, threshold, limit)
}

// Expiring lists products expiring within the window.
func (s *Service) Expiring(ctx context.Context, within time.Duration, limit int) ([]Product, error) {
	return s.repo.Expiring(ctx, time.Now().Add(within), limit)
}

// SynthesizeBarcode generates a unique-ish barcode for products that arrive
// without one on the supplier invoice.
func SynthesizeBarcode() string {
	id := uuid.New()
	return "PH" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))[:14]
}

func (s *Service) record(ctx context.Context, actorID int64, action string, productID int64, detail string, meta map[string]any) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, shared.ActivityEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: fmt.Sprintf("%d", productID),
		Detail:   detail,
		Meta:     meta,
	})
}

func (s *Service) bump(ctx context.Context) {
	if s.refresh == nil {
		return
	}
	_ = s.refresh.Bump(ctx, "products")
}
