package payments

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	nextID   int64
	payments map[int64]Payment
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, payments: make(map[int64]Payment)}
}

func (m *memoryRepo) Create(_ context.Context, p Payment) (int64, error) {
	id := m.nextID
	m.nextID++
	p.ID = id
	m.payments[id] = p
	return id, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return Payment{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) GetByReference(_ context.Context, reference string) (Payment, error) {
	for _, p := range m.payments {
		if p.Reference == reference {
			return p, nil
		}
	}
	return Payment{}, ErrNotFound
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id int64, status Status, note string, resolvedAt *time.Time) error {
	p, ok := m.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	p.Note = note
	p.ResolvedAt = resolvedAt
	m.payments[id] = p
	return nil
}

func (m *memoryRepo) ListPending(_ context.Context) ([]Payment, error) {
	out := []Payment{}
	for _, p := range m.payments {
		if p.Status == StatusPending {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubEnqueue struct{ ids []int64 }

func (s *stubEnqueue) EnqueuePoll(_ context.Context, id int64) error {
	s.ids = append(s.ids, id)
	return nil
}

// gatewayServer is an httptest stand-in for the mobile money gateway.
func gatewayServer(t *testing.T, status string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/collections":
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.NotEmpty(t, req["phone"])
			assert.NotEmpty(t, req["amount"])
			_ = json.NewEncoder(w).Encode(map[string]string{
				"gateway_ref": "GW-" + req["reference"],
				"status":      "PENDING",
			})
		case r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestService(repo *memoryRepo, gateway GatewayPort, enqueue EnqueuePort) *Service {
	return NewService(slog.New(slog.DiscardHandler), repo, gateway, enqueue, nil)
}

func TestInitiateRecordsPendingAndEnqueues(t *testing.T) {
	srv := gatewayServer(t, "PENDING")
	defer srv.Close()

	repo := newMemoryRepo()
	enqueue := &stubEnqueue{}
	svc := newTestService(repo, NewClient(srv.URL, "test-key"), enqueue)

	ref, err := svc.Initiate(context.Background(), 42, "+254700000001", decimal.NewFromInt(310))
	require.NoError(t, err)
	assert.Contains(t, ref, "PAY-")

	payment, err := repo.GetByReference(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, payment.Status)
	assert.Equal(t, int64(42), payment.SaleID)
	assert.Equal(t, "GW-"+ref, payment.GatewayRef)
	assert.Equal(t, []int64{payment.ID}, enqueue.ids)
}

func TestPollConfirms(t *testing.T) {
	srv := gatewayServer(t, "SUCCESS")
	defer srv.Close()

	repo := newMemoryRepo()
	svc := newTestService(repo, NewClient(srv.URL, "test-key"), nil)

	ref, err := svc.Initiate(context.Background(), 1, "+254700000001", decimal.NewFromInt(100))
	require.NoError(t, err)
	payment, _ := repo.GetByReference(context.Background(), ref)

	status, again, err := svc.Poll(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, status)
	assert.False(t, again)

	stored, _ := repo.Get(context.Background(), payment.ID)
	require.NotNil(t, stored.ResolvedAt)
}

func TestPollKeepsPending(t *testing.T) {
	srv := gatewayServer(t, "PENDING")
	defer srv.Close()

	repo := newMemoryRepo()
	svc := newTestService(repo, NewClient(srv.URL, "test-key"), nil)

	ref, err := svc.Initiate(context.Background(), 1, "+254700000001", decimal.NewFromInt(100))
	require.NoError(t, err)
	payment, _ := repo.GetByReference(context.Background(), ref)

	status, again, err := svc.Poll(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status)
	assert.True(t, again)
}

func TestPollTimesOut(t *testing.T) {
	srv := gatewayServer(t, "PENDING")
	defer srv.Close()

	repo := newMemoryRepo()
	svc := newTestService(repo, NewClient(srv.URL, "test-key"), nil)

	ref, err := svc.Initiate(context.Background(), 1, "+254700000001", decimal.NewFromInt(100))
	require.NoError(t, err)
	payment, _ := repo.GetByReference(context.Background(), ref)

	svc.now = func() time.Time { return time.Now().Add(PollTimeout + time.Minute) }

	status, again, err := svc.Poll(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusTimeout, status)
	assert.False(t, again)
}

func TestCompleteManually(t *testing.T) {
	srv := gatewayServer(t, "PENDING")
	defer srv.Close()

	repo := newMemoryRepo()
	svc := newTestService(repo, NewClient(srv.URL, "test-key"), nil)

	ref, err := svc.Initiate(context.Background(), 1, "+254700000001", decimal.NewFromInt(100))
	require.NoError(t, err)

	payment, err := svc.CompleteManually(context.Background(), ref, true, "verified on handset", 7, "jane")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, payment.Status)

	// A second completion is refused.
	_, err = svc.CompleteManually(context.Background(), ref, false, "changed my mind", 7, "jane")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestInitiateValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, NewClient("http://unused", "k"), nil)

	_, err := svc.Initiate(context.Background(), 0, "+254700000001", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Initiate(context.Background(), 1, "", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Initiate(context.Background(), 1, "+254700000001", decimal.Zero)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, repo.payments)
}
