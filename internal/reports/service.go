package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	cacheTTL          = 10 * time.Minute
	lowStockThreshold = 10
	expiryWindowDays  = 90
)

// ErrValidation indicates bad report filters.
var ErrValidation = errors.New("reports: invalid input")

// Dashboard is the KPI block shown on the till dashboard.
type Dashboard struct {
	From            time.Time       `json:"from"`
	To              time.Time       `json:"to"`
	SaleCount       int64           `json:"sale_count"`
	SalesTotal      decimal.Decimal `json:"sales_total"`
	VATCollected    decimal.Decimal `json:"vat_collected"`
	RoundingExtra   decimal.Decimal `json:"rounding_extra"`
	Profit          decimal.Decimal `json:"profit"`
	InvoiceTotal    decimal.Decimal `json:"invoice_total"`
	CreditNoteTotal decimal.Decimal `json:"credit_note_total"`
	LowStockCount   int64           `json:"low_stock_count"`
	ExpiringCount   int64           `json:"expiring_count"`
}

// SalesSummary aggregates sales between two instants.
type SalesSummary struct {
	Count         int64
	Total         decimal.Decimal
	VATTotal      decimal.Decimal
	RoundingTotal decimal.Decimal
	ProfitTotal   decimal.Decimal
}

// StatsPort is the aggregate-query surface the dashboard needs.
type StatsPort interface {
	SalesSummary(ctx context.Context, from, to time.Time) (SalesSummary, error)
	InvoiceTotal(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	CreditNoteTotal(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	LowStockCount(ctx context.Context, threshold int64) (int64, error)
	ExpiringCount(ctx context.Context, withinDays int) (int64, error)
}

// GenerationPort supplies cache generations per domain.
type GenerationPort interface {
	Generation(ctx context.Context, domain string) (int64, error)
}

// Service computes dashboard KPIs with a generation-versioned Redis cache.
// A refresh bump on any contributing domain changes the cache key, so stale
// entries simply age out. Concurrent misses for the same key are collapsed.
type Service struct {
	logger *slog.Logger
	stats  StatsPort
	cache  *redis.Client
	gens   GenerationPort
	group  singleflight.Group
}

// NewService builds Service. cache may be nil; the dashboard then computes
// on every call.
func NewService(logger *slog.Logger, stats StatsPort, cache *redis.Client, gens GenerationPort) *Service {
	return &Service{logger: logger, stats: stats, cache: cache, gens: gens}
}

// Dashboard returns the KPI block for a date window, cached per generation.
func (s *Service) Dashboard(ctx context.Context, from, to time.Time) (Dashboard, error) {
	if to.Before(from) {
		return Dashboard{}, fmt.Errorf("%w: window end before start", ErrValidation)
	}

	key, err := s.cacheKey(ctx, from, to)
	if err != nil {
		s.logger.Warn("report cache key unavailable", slog.Any("error", err))
		return s.compute(ctx, from, to)
	}

	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		if cached, ok := s.fromCache(ctx, key); ok {
			return cached, nil
		}
		dashboard, err := s.compute(ctx, from, to)
		if err != nil {
			return Dashboard{}, err
		}
		s.toCache(ctx, key, dashboard)
		return dashboard, nil
	})
	if err != nil {
		return Dashboard{}, err
	}
	return result.(Dashboard), nil
}

// Warmup precomputes today's dashboard so the first operator of the day does
// not pay for the fan-out.
func (s *Service) Warmup(ctx context.Context) error {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	_, err := s.Dashboard(ctx, from, now)
	return err
}

func (s *Service) compute(ctx context.Context, from, to time.Time) (Dashboard, error) {
	dashboard := Dashboard{From: from, To: to}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.stats.SalesSummary(ctx, from, to)
		if err != nil {
			return fmt.Errorf("sales summary: %w", err)
		}
		dashboard.SaleCount = summary.Count
		dashboard.SalesTotal = summary.Total
		dashboard.VATCollected = summary.VATTotal
		dashboard.RoundingExtra = summary.RoundingTotal
		dashboard.Profit = summary.ProfitTotal
		return nil
	})
	g.Go(func() error {
		total, err := s.stats.InvoiceTotal(ctx, from, to)
		if err != nil {
			return fmt.Errorf("invoice total: %w", err)
		}
		dashboard.InvoiceTotal = total
		return nil
	})
	g.Go(func() error {
		total, err := s.stats.CreditNoteTotal(ctx, from, to)
		if err != nil {
			return fmt.Errorf("credit note total: %w", err)
		}
		dashboard.CreditNoteTotal = total
		return nil
	})
	g.Go(func() error {
		count, err := s.stats.LowStockCount(ctx, lowStockThreshold)
		if err != nil {
			return fmt.Errorf("low stock count: %w", err)
		}
		dashboard.LowStockCount = count
		return nil
	})
	g.Go(func() error {
		count, err := s.stats.ExpiringCount(ctx, expiryWindowDays)
		if err != nil {
			return fmt.Errorf("expiring count: %w", err)
		}
		dashboard.ExpiringCount = count
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return dashboard, nil
}

func (s *Service) cacheKey(ctx context.Context, from, to time.Time) (string, error) {
	if s.cache == nil || s.gens == nil {
		return "", errors.New("no cache configured")
	}
	var gens [3]int64
	for i, domain := range [...]string{"products", "sales", "invoices"} {
		gen, err := s.gens.Generation(ctx, domain)
		if err != nil {
			return "", err
		}
		gens[i] = gen
	}
	return fmt.Sprintf("reports:dashboard:%d:%d:%d:%d:%d",
		gens[0], gens[1], gens[2], from.Unix(), to.Unix()), nil
}

func (s *Service) fromCache(ctx context.Context, key string) (Dashboard, bool) {
	if s.cache == nil {
		return Dashboard{}, false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return Dashboard{}, false
	}
	var dashboard Dashboard
	if err := json.Unmarshal(raw, &dashboard); err != nil {
		return Dashboard{}, false
	}
	return dashboard, true
}

func (s *Service) toCache(ctx context.Context, key string, dashboard Dashboard) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(dashboard)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
		s.logger.Warn("report cache write failed", slog.Any("error", err))
	}
}
