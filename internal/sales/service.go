package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmapos/pharmapos/internal/catalog"
	"github.com/pharmapos/pharmapos/internal/shared"
)

// RepositoryPort describes sale persistence.
type RepositoryPort interface {
	CreateSale(ctx context.Context, sale Sale) (int64, error)
	InsertLines(ctx context.Context, saleID int64, lines []SaleLine) error
	Get(ctx context.Context, id int64) (Sale, error)
	List(ctx context.Context, filters ListFilters) ([]Sale, int, error)
}

// CatalogPort exposes the product operations checkout needs.
type CatalogPort interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
	DecrementStock(ctx context.Context, id int64, qty int64) error
}

// PaymentsPort starts a mobile money collection for a sale. It returns the
// gateway reference; confirmation is observed later by the poller, never
// awaited here.
type PaymentsPort interface {
	Initiate(ctx context.Context, saleID int64, phone string, amount decimal.Decimal) (string, error)
}

// ActivityPort abstracts activity logging.
type ActivityPort interface {
	Record(ctx context.Context, entry shared.ActivityEntry) error
}

// RefreshPort signals list views that a domain changed.
type RefreshPort interface {
	Bump(ctx context.Context, domains ...string) error
}

// MetricsPort counts committed sales.
type MetricsPort interface {
	SaleCommitted()
}

// ListFilters narrows sale listings.
type ListFilters struct {
	Method  PaymentMethod
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}

// Service runs checkout and sale queries.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	products CatalogPort
	payments PaymentsPort
	activity ActivityPort
	refresh  RefreshPort
	metrics  MetricsPort
}

// SetMetrics attaches the optional sale counter.
func (s *Service) SetMetrics(metrics MetricsPort) {
	s.metrics = metrics
}

// NewService builds Service.
func NewService(logger *slog.Logger, repo RepositoryPort, products CatalogPort, payments PaymentsPort, activity ActivityPort, refresh RefreshPort) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		products: products,
		payments: payments,
		activity: activity,
		refresh:  refresh,
	}
}

// CheckoutLine is one operator-entered cart line.
type CheckoutLine struct {
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
	PriceType PriceType
}

// CheckoutInput is one checkout attempt.
type CheckoutInput struct {
	PaymentMethod PaymentMethod
	CustomerPhone string
	ActorID       int64
	ActorName     string
	Lines         []CheckoutLine
}

// Receipt is the checkout result. PaymentRef is set for mobile money sales
// and identifies the pending gateway collection.
type Receipt struct {
	Sale       Sale   `json:"sale"`
	PaymentRef string `json:"payment_ref,omitempty"`
}

// Checkout builds and verifies every line, decrements stock per line in
// order, persists the sale, then logs and signals. Stock decrements are
// guarded at the storage layer; an insufficient line aborts the remaining
// lines with decrements already applied left standing, the same contract the
// return workflow follows. Mobile money collection is initiated after the
// sale is persisted; an initiation failure leaves the sale in place and is
// surfaced as ErrPaymentInit so the operator can retry from the payment
// screen.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (Receipt, error) {
	if input.PaymentMethod != PaymentCash && input.PaymentMethod != PaymentMobileMoney {
		return Receipt{}, fmt.Errorf("%w: unknown payment method %q", ErrValidation, input.PaymentMethod)
	}
	if input.PaymentMethod == PaymentMobileMoney && strings.TrimSpace(input.CustomerPhone) == "" {
		return Receipt{}, fmt.Errorf("%w: customer phone required for mobile money", ErrValidation)
	}
	if len(input.Lines) == 0 {
		return Receipt{}, fmt.Errorf("%w: cart is empty", ErrValidation)
	}

	sale := Sale{
		SaleNumber:    newSaleNumber(),
		PaymentMethod: input.PaymentMethod,
		CustomerPhone: strings.TrimSpace(input.CustomerPhone),
		UserID:        input.ActorID,
		UserName:      input.ActorName,
	}

	lines := make([]SaleLine, 0, len(input.Lines))
	for _, cl := range input.Lines {
		product, err := s.products.Get(ctx, cl.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return Receipt{}, fmt.Errorf("%w: product %d not found", ErrValidation, cl.ProductID)
			}
			return Receipt{}, fmt.Errorf("sales: load product %d: %w", cl.ProductID, err)
		}
		if product.CurrentStock < cl.Quantity {
			return Receipt{}, fmt.Errorf("%w: %s has %d in stock, %d requested",
				ErrValidation, product.Name, product.CurrentStock, cl.Quantity)
		}
		line, err := BuildSaleLine(product, cl.Quantity, cl.UnitPrice, cl.PriceType)
		if err != nil {
			return Receipt{}, err
		}
		if err := line.Complete(); err != nil {
			return Receipt{}, err
		}
		lines = append(lines, line)

		sale.TotalAmount = sale.TotalAmount.Add(line.FinalPriceRounded)
		sale.VATTotal = sale.VATTotal.Add(line.VATAmount)
		sale.RoundingTotal = sale.RoundingTotal.Add(line.RoundingExtra)
		sale.ProfitTotal = sale.ProfitTotal.Add(line.Profit)
	}

	for _, line := range lines {
		if err := s.products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			if errors.Is(err, catalog.ErrInsufficientStock) {
				return Receipt{}, fmt.Errorf("%w: %s oversold", ErrValidation, line.ProductName)
			}
			return Receipt{}, fmt.Errorf("sales: decrement %s: %w", line.ProductName, err)
		}
	}

	saleID, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return Receipt{}, fmt.Errorf("sales: create sale: %w", err)
	}
	sale.ID = saleID
	for i := range lines {
		lines[i].SaleID = saleID
	}
	if err := s.repo.InsertLines(ctx, saleID, lines); err != nil {
		return Receipt{}, fmt.Errorf("sales: insert lines: %w", err)
	}
	sale.Lines = lines

	s.recordSale(ctx, sale)
	if s.metrics != nil {
		s.metrics.SaleCommitted()
	}
	if s.refresh != nil {
		_ = s.refresh.Bump(ctx, "products", "sales")
	}

	receipt := Receipt{Sale: sale}
	if input.PaymentMethod == PaymentMobileMoney && s.payments != nil {
		ref, err := s.payments.Initiate(ctx, saleID, sale.CustomerPhone, sale.TotalAmount)
		if err != nil {
			s.logger.Error("mobile money initiation failed",
				slog.Int64("sale_id", saleID), slog.Any("error", err))
			return receipt, fmt.Errorf("%w: %v", ErrPaymentInit, err)
		}
		receipt.PaymentRef = ref
	}
	return receipt, nil
}

// Get loads one sale with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	if id <= 0 {
		return Sale{}, ErrValidation
	}
	return s.repo.Get(ctx, id)
}

// List returns a page of sales.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Sale, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) recordSale(ctx context.Context, sale Sale) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, shared.ActivityEntry{
		ActorID:   sale.UserID,
		ActorName: sale.UserName,
		Action:    "SALE_CREATE",
		Entity:    "sale",
		EntityID:  fmt.Sprintf("%d", sale.ID),
		Detail: fmt.Sprintf("Sale %s: %d items, total %s via %s",
			sale.SaleNumber, len(sale.Lines), sale.TotalAmount.StringFixed(2), sale.PaymentMethod),
		Meta: map[string]any{
			"sale_number":    sale.SaleNumber,
			"total_amount":   sale.TotalAmount.String(),
			"payment_method": string(sale.PaymentMethod),
			"item_count":     len(sale.Lines),
		},
	})
}

func newSaleNumber() string {
	return "POS-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:16]
}
