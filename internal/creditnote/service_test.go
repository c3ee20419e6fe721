package creditnote

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

type memoryRepo struct {
	nextID     int64
	headers    map[int64]CreditNote
	items      map[int64][]Item
	failInsert error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, headers: make(map[int64]CreditNote), items: make(map[int64][]Item)}
}

func (m *memoryRepo) CreateHeader(_ context.Context, note CreditNote) (int64, error) {
	id := m.nextID
	m.nextID++
	note.ID = id
	m.headers[id] = note
	return id, nil
}

func (m *memoryRepo) InsertItem(_ context.Context, item Item) error {
	if m.failInsert != nil {
		return m.failInsert
	}
	m.items[item.CreditNoteID] = append(m.items[item.CreditNoteID], item)
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (CreditNote, error) {
	note, ok := m.headers[id]
	if !ok {
		return CreditNote{}, ErrNotFound
	}
	note.Items = m.items[id]
	return note, nil
}

func (m *memoryRepo) List(_ context.Context, _ ListFilters) ([]CreditNote, int, error) {
	out := make([]CreditNote, 0, len(m.headers))
	for _, note := range m.headers {
		out = append(out, note)
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

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedCatalog() *memoryCatalog {
	return &memoryCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, Name: "Paracetamol 500mg", BatchNumber: "B-100", CurrentStock: 5, CostPrice: dec("100")},
		2: {ID: 2, Name: "Amoxicillin 250mg", BatchNumber: "B-200", CurrentStock: 12, CostPrice: dec("50")},
	}}
}

func newTestService(repo *memoryRepo, cat *memoryCatalog) *Service {
	return NewService(slog.New(slog.DiscardHandler), repo, cat, nil, nil)
}

func TestCommitDecrementsStockAndFixesTotal(t *testing.T) {
	repo := newMemoryRepo()
	cat := seedCatalog()
	svc := newTestService(repo, cat)

	note, err := svc.Commit(context.Background(), CommitInput{
		CreditNoteNumber: "CN-2024-001",
		Supplier:         "MedSupply Ltd",
		Lines: []LineInput{
			{ProductID: 1, Quantity: 3, Reason: "expired"},
			{ProductID: 2, Quantity: 4, Reason: "damaged"},
		},
	})
	require.NoError(t, err)
	require.Len(t, note.Items, 2)

	assert.Equal(t, int64(2), cat.products[1].CurrentStock)
	assert.Equal(t, int64(8), cat.products[2].CurrentStock)

	assert.True(t, note.Items[0].TotalCredit.Equal(dec("300")))
	assert.True(t, note.Items[1].TotalCredit.Equal(dec("200")))
	assert.True(t, note.TotalAmount.Equal(dec("500")), "total fixed at creation: %s", note.TotalAmount)

	stored, err := repo.Get(context.Background(), note.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
}

func TestCommitStockFloor(t *testing.T) {
	repo := newMemoryRepo()
	cat := seedCatalog()
	svc := newTestService(repo, cat)

	_, err := svc.Commit(context.Background(), CommitInput{
		CreditNoteNumber: "CN-2024-002",
		Supplier:         "MedSupply Ltd",
		Lines:            []LineInput{{ProductID: 1, Quantity: 6, Reason: "expired"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, int64(5), cat.products[1].CurrentStock, "stock unchanged after rejection")
	assert.Empty(t, repo.headers, "over-stock request rejected before any mutation")
}

func TestCommitNoCompensationAfterHeader(t *testing.T) {
	repo := newMemoryRepo()
	cat := seedCatalog()
	repo.failInsert = errors.New("disk full")
	svc := newTestService(repo, cat)

	_, err := svc.Commit(context.Background(), CommitInput{
		CreditNoteNumber: "CN-2024-003",
		Supplier:         "MedSupply Ltd",
		Lines:            []LineInput{{ProductID: 2, Quantity: 4}},
	})
	require.Error(t, err)

	// Linear flow: the decrement already applied is not compensated.
	assert.Equal(t, int64(8), cat.products[2].CurrentStock)
	assert.Len(t, repo.headers, 1, "header stands, no rollback in this workflow")
}

func TestCommitValidation(t *testing.T) {
	repo := newMemoryRepo()
	cat := seedCatalog()
	svc := newTestService(repo, cat)

	cases := []struct {
		name  string
		input CommitInput
	}{
		{"missing number", CommitInput{Supplier: "S", Lines: []LineInput{{ProductID: 1, Quantity: 1}}}},
		{"missing supplier", CommitInput{CreditNoteNumber: "CN", Lines: []LineInput{{ProductID: 1, Quantity: 1}}}},
		{"no lines", CommitInput{CreditNoteNumber: "CN", Supplier: "S"}},
		{"zero quantity", CommitInput{CreditNoteNumber: "CN", Supplier: "S", Lines: []LineInput{{ProductID: 1}}}},
		{"unknown product", CommitInput{CreditNoteNumber: "CN", Supplier: "S", Lines: []LineInput{{ProductID: 99, Quantity: 1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Commit(context.Background(), tc.input)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, repo.headers)
		})
	}
	assert.Equal(t, int64(5), cat.products[1].CurrentStock)
}
