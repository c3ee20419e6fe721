package reports

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmapos/pharmapos/internal/shared"
)

type stubStats struct {
	calls int32
}

func (s *stubStats) SalesSummary(context.Context, time.Time, time.Time) (SalesSummary, error) {
	atomic.AddInt32(&s.calls, 1)
	return SalesSummary{
		Count:         3,
		Total:         decimal.NewFromInt(930),
		VATTotal:      decimal.NewFromInt(120),
		RoundingTotal: decimal.NewFromFloat(4.30),
		ProfitTotal:   decimal.NewFromInt(150),
	}, nil
}

func (s *stubStats) InvoiceTotal(context.Context, time.Time, time.Time) (decimal.Decimal, error) {
	return decimal.NewFromInt(5000), nil
}

func (s *stubStats) CreditNoteTotal(context.Context, time.Time, time.Time) (decimal.Decimal, error) {
	return decimal.NewFromInt(200), nil
}

func (s *stubStats) LowStockCount(context.Context, int64) (int64, error) { return 2, nil }

func (s *stubStats) ExpiringCount(context.Context, int) (int64, error) { return 1, nil }

func newTestService(t *testing.T) (*Service, *stubStats, *shared.RefreshBroadcaster) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	stats := &stubStats{}
	refresh := shared.NewRefreshBroadcaster(client)
	svc := NewService(slog.New(slog.DiscardHandler), stats, client, refresh)
	return svc, stats, refresh
}

func TestDashboardComputesAndCaches(t *testing.T) {
	svc, stats, _ := newTestService(t)
	ctx := context.Background()
	from := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	first, err := svc.Dashboard(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(3), first.SaleCount)
	assert.True(t, first.SalesTotal.Equal(decimal.NewFromInt(930)))
	assert.True(t, first.RoundingExtra.Equal(decimal.NewFromFloat(4.30)))
	assert.Equal(t, int64(2), first.LowStockCount)

	second, err := svc.Dashboard(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stats.calls), "second call served from cache")
}

func TestDashboardRecomputesAfterBump(t *testing.T) {
	svc, stats, refresh := newTestService(t)
	ctx := context.Background()
	from := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	_, err := svc.Dashboard(ctx, from, to)
	require.NoError(t, err)

	require.NoError(t, refresh.Bump(ctx, "sales"))

	_, err = svc.Dashboard(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&stats.calls), "bump invalidates the cached dashboard")
}

func TestDashboardRejectsInvertedWindow(t *testing.T) {
	svc, _, _ := newTestService(t)
	now := time.Now()
	_, err := svc.Dashboard(context.Background(), now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDashboardWithoutCache(t *testing.T) {
	stats := &stubStats{}
	svc := NewService(slog.New(slog.DiscardHandler), stats, nil, nil)
	ctx := context.Background()

	_, err := svc.Dashboard(ctx, time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	_, err = svc.Dashboard(ctx, time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&stats.calls), "no cache means every call computes")
}

func TestWriteSalesCSV(t *testing.T) {
	at := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	rows := []SalesRow{{
		SaleNumber:    "POS-ABC123",
		CreatedAt:     at,
		ProductName:   "Paracetamol 500mg",
		Quantity:      2,
		UnitPrice:     decimal.NewFromInt(120),
		FinalPrice:    decimal.NewFromInt(240),
		RoundingExtra: decimal.Zero,
		Profit:        decimal.NewFromFloat(26.90),
		PriceType:     "SELLING",
		PaymentMethod: "CASH",
		SoldBy:        "jane",
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteSalesCSV(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Rounding Extra")
	assert.Contains(t, lines[1], "POS-ABC123")
	assert.Contains(t, lines[1], "120.00")
	assert.Contains(t, lines[1], "26.90")
}
