package sales

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmapos/pharmapos/internal/catalog"
)

type memorySaleRepo struct {
	nextID int64
	sales  map[int64]Sale
	lines  map[int64][]SaleLine
}

func newMemorySaleRepo() *memorySaleRepo {
	return &memorySaleRepo{nextID: 1, sales: make(map[int64]Sale), lines: make(map[int64][]SaleLine)}
}

func (m *memorySaleRepo) CreateSale(_ context.Context, sale Sale) (int64, error) {
	id := m.nextID
	m.nextID++
	sale.ID = id
	m.sales[id] = sale
	return id, nil
}

func (m *memorySaleRepo) InsertLines(_ context.Context, saleID int64, lines []SaleLine) error {
	m.lines[saleID] = append([]SaleLine(nil), lines...)
	return nil
}

func (m *memorySaleRepo) Get(_ context.Context, id int64) (Sale, error) {
	sale, ok := m.sales[id]
	if !ok {
		return Sale{}, ErrNotFound
	}
	sale.Lines = m.lines[id]
	return sale, nil
}

func (m *memorySaleRepo) List(_ context.Context, _ ListFilters) ([]Sale, int, error) {
	out := make([]Sale, 0, len(m.sales))
	for _, sale := range m.sales {
		out = append(out, sale)
	}
	return out, len(out), nil
}

type memoryCatalog struct {
	products map[int64]catalog.Product
}

func (m *memoryCatalog) Get(_ context.Context, id int64) (catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (m *memoryCatalog) DecrementStock(_ context.Context, id int64, qty int64) error {
	p, ok := m.products[id]
	if !ok {
		return catalog.ErrNotFound
	}
	if p.CurrentStock < qty {
		return catalog.ErrInsufficientStock
	}
	p.CurrentStock -= qty
	m.products[id] = p
	return nil
}

type stubPayments struct {
	ref     string
	err     error
	calls   int
	lastSum decimal.Decimal
}

func (s *stubPayments) Initiate(_ context.Context, _ int64, _ string, amount decimal.Decimal) (string, error) {
	s.calls++
	s.lastSum = amount
	if s.err != nil {
		return "", s.err
	}
	return s.ref, nil
}

func seedCatalog() *memoryCatalog {
	return &memoryCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, Name: "Paracetamol 500mg", CurrentStock: 10,
			CostPrice: dec("100"), DiscountedCostPrice: dec("90"),
			SellingPrice: dec("120"), VATRate: dec("16")},
		2: {ID: 2, Name: "Amoxicillin 250mg", CurrentStock: 4,
			CostPrice: dec("50"), DiscountedCostPrice: dec("50"),
			SellingPrice: dec("70"), VATRate: dec("16")},
	}}
}

func newTestService(repo *memorySaleRepo, cat *memoryCatalog, pay PaymentsPort) *Service {
	return NewService(slog.New(slog.DiscardHandler), repo, cat, pay, nil, nil)
}

func TestCheckoutCashSale(t *testing.T) {
	repo := newMemorySaleRepo()
	cat := seedCatalog()
	svc := newTestService(repo, cat, nil)

	receipt, err := svc.Checkout(context.Background(), CheckoutInput{
		PaymentMethod: PaymentCash,
		Lines: []CheckoutLine{
			{ProductID: 1, Quantity: 2, UnitPrice: dec("120"), PriceType: PriceTypeSelling},
			{ProductID: 2, Quantity: 1, UnitPrice: dec("70"), PriceType: PriceTypeSelling},
		},
	})
	require.NoError(t, err)
	sale := receipt.Sale

	require.Len(t, sale.Lines, 2)
	assert.NotEmpty(t, sale.SaleNumber)
	// 240 + 70, both already multiples of 5.
	assert.True(t, sale.TotalAmount.Equal(dec("310")), "total %s", sale.TotalAmount)

	assert.Equal(t, int64(8), cat.products[1].CurrentStock)
	assert.Equal(t, int64(3), cat.products[2].CurrentStock)

	stored, err := repo.Get(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 2)
	for _, line := range stored.Lines {
		assert.NoError(t, line.Complete())
	}
}

func TestCheckoutRejectsOverStock(t *testing.T) {
	repo := newMemorySaleRepo()
	cat := seedCatalog()
	svc := newTestService(repo, cat, nil)

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		PaymentMethod: PaymentCash,
		Lines:         []CheckoutLine{{ProductID: 2, Quantity: 5, UnitPrice: dec("70"), PriceType: PriceTypeSelling}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, int64(4), cat.products[2].CurrentStock)
	assert.Empty(t, repo.sales)
}

func TestCheckoutRejectsBelowFloorBeforeMutation(t *testing.T) {
	repo := newMemorySaleRepo()
	cat := seedCatalog()
	svc := newTestService(repo, cat, nil)

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		PaymentMethod: PaymentCash,
		Lines: []CheckoutLine{
			{ProductID: 1, Quantity: 1, UnitPrice: dec("120"), PriceType: PriceTypeSelling},
			{ProductID: 2, Quantity: 1, UnitPrice: dec("10"), PriceType: PriceTypeSelling},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBelowFloor)
	assert.Equal(t, int64(10), cat.products[1].CurrentStock, "no decrement before all lines validate")
	assert.Empty(t, repo.sales)
}

func TestCheckoutMobileMoneyInitiatesPayment(t *testing.T) {
	repo := newMemorySaleRepo()
	cat := seedCatalog()
	pay := &stubPayments{ref: "MM-REF-001"}
	svc := newTestService(repo, cat, pay)

	receipt, err := svc.Checkout(context.Background(), CheckoutInput{
		PaymentMethod: PaymentMobileMoney,
		CustomerPhone: "+254700000001",
		Lines:         []CheckoutLine{{ProductID: 1, Quantity: 1, UnitPrice: dec("120"), PriceType: PriceTypeSelling}},
	})
	require.NoError(t, err)
	assert.Equal(t, "MM-REF-001", receipt.PaymentRef)
	assert.Equal(t, 1, pay.calls)
	assert.True(t, pay.lastSum.Equal(receipt.Sale.TotalAmount))
}

func TestCheckoutMobileMoneyRequiresPhone(t *testing.T) {
	svc := newTestService(newMemorySaleRepo(), seedCatalog(), &stubPayments{})

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		PaymentMethod: PaymentMobileMoney,
		Lines:         []CheckoutLine{{ProductID: 1, Quantity: 1, UnitPrice: dec("120"), PriceType: PriceTypeSelling}},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCheckoutPaymentInitFailureKeepsSale(t *testing.T) {
	repo := newMemorySaleRepo()
	cat := seedCatalog()
	pay := &stubPayments{err: errors.New("gateway down")}
	svc := newTestService(repo, cat, pay)

	receipt, err := svc.Checkout(context.Background(), CheckoutInput{
		PaymentMethod: PaymentMobileMoney,
		CustomerPhone: "+254700000001",
		Lines:         []CheckoutLine{{ProductID: 1, Quantity: 1, UnitPrice: dec("120"), PriceType: PriceTypeSelling}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentInit)
	assert.NotZero(t, receipt.Sale.ID, "receipt still carries the persisted sale")
	assert.Len(t, repo.sales, 1)
	assert.Equal(t, int64(9), cat.products[1].CurrentStock)
}

func TestCheckoutValidation(t *testing.T) {
	svc := newTestService(newMemorySaleRepo(), seedCatalog(), nil)

	_, err := svc.Checkout(context.Background(), CheckoutInput{PaymentMethod: "CHEQUE"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Checkout(context.Background(), CheckoutInput{PaymentMethod: PaymentCash})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Checkout(context.Background(), CheckoutInput{
		PaymentMethod: PaymentCash,
		Lines:         []CheckoutLine{{ProductID: 77, Quantity: 1, UnitPrice: dec("120"), PriceType: PriceTypeSelling}},
	})
	assert.ErrorIs(t, err, ErrValidation)
}
