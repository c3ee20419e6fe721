package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	products map[int64]Product
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product)}
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) FindByNameBatch(ctx context.Context, name, batch string) (Product, error) {
	for _, p := range r.products {
		if p.Name == name && p.BatchNumber == batch {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *memoryRepo) Create(ctx context.Context, p Product) (Product, error) {
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, p Product) error {
	existing, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	p.ID = id
	p.CurrentStock = existing.CurrentStock
	r.products[id] = p
	return nil
}

func (r *memoryRepo) IncrementStock(ctx context.Context, id int64, delta int64, fields PricingFields) error {
	p, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	p.CurrentStock += delta
	p.CostPrice = fields.CostPrice
	p.DiscountedCostPrice = fields.DiscountedCostPrice
	p.SellingPrice = fields.SellingPrice
	p.DiscountedSellingPrice = fields.DiscountedSellingPrice
	p.VATRate = fields.VATRate
	p.Category = fields.Category
	p.ExpiryDate = fields.ExpiryDate
	r.products[id] = p
	return nil
}

func (r *memoryRepo) DecrementStock(ctx context.Context, id int64, qty int64) error {
	p, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	if p.CurrentStock < qty {
		return ErrInsufficientStock
	}
	p.CurrentStock -= qty
	r.products[id] = p
	return nil
}

func (r *memoryRepo) SetStock(ctx context.Context, id int64, stock int64) error {
	p, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	p.CurrentStock = stock
	r.products[id] = p
	return nil
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) LowStock(ctx context.Context, threshold int64, limit int) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if p.CurrentStock <= threshold {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) Expiring(ctx context.Context, cutoff time.Time, limit int) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if !p.ExpiryDate.IsZero() && !p.ExpiryDate.After(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestCreateDefaultsAndBarcode(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, Product{
		Name:        "Amoxicillin 500mg",
		BatchNumber: "B-2231",
		CostPrice:   decimal.NewFromInt(100),
	}, 1)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.True(t, created.VATRate.Equal(DefaultVATRate))
	require.True(t, created.DiscountedCostPrice.Equal(created.CostPrice))
	require.NotEmpty(t, created.Barcode)

	_, err = svc.Create(ctx, Product{Name: "  ", BatchNumber: "B-1"}, 1)
	require.ErrorIs(t, err, ErrValidation)
}

func TestAdjustStockGuardsNegative(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, Product{
		Name:         "Paracetamol 500mg",
		BatchNumber:  "B-77",
		CurrentStock: 5,
	}, 1)
	require.NoError(t, err)

	updated, err := svc.AdjustStock(ctx, created.ID, -3, "breakage", 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.CurrentStock)

	_, err = svc.AdjustStock(ctx, created.ID, -3, "breakage", 1)
	require.ErrorIs(t, err, ErrInsufficientStock)

	after, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), after.CurrentStock)
}

func TestSynthesizeBarcodeShape(t *testing.T) {
	a := SynthesizeBarcode()
	b := SynthesizeBarcode()
	require.Len(t, a, 16)
	require.NotEqual(t, a, b)
}
