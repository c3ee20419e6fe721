package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmapos/pharmapos/internal/shared"
)

// PollTimeout is how long a pending collection may stay unresolved before
// the poller marks it TIMEOUT and the operator may complete it manually.
const PollTimeout = 3 * time.Minute

// RepositoryPort describes payment persistence.
type RepositoryPort interface {
	Create(ctx context.Context, p Payment) (int64, error)
	Get(ctx context.Context, id int64) (Payment, error)
	GetByReference(ctx context.Context, reference string) (Payment, error)
	UpdateStatus(ctx context.Context, id int64, status Status, note string, resolvedAt *time.Time) error
	ListPending(ctx context.Context) ([]Payment, error)
}

// GatewayPort is the mobile money gateway surface the service needs.
type GatewayPort interface {
	Push(ctx context.Context, phone, amount, reference string) (string, error)
	QueryStatus(ctx context.Context, gatewayRef string) (string, error)
}

// EnqueuePort schedules the first status poll for a new payment.
type EnqueuePort interface {
	EnqueuePoll(ctx context.Context, paymentID int64) error
}

// ActivityPort abstracts activity logging.
type ActivityPort interface {
	Record(ctx context.Context, entry shared.ActivityEntry) error
}

// Service tracks mobile money collections. Confirmation is always observed
// by polling, never awaited inline.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	gateway  GatewayPort
	enqueue  EnqueuePort
	activity ActivityPort
	now      func() time.Time
}

// NewService builds Service.
func NewService(logger *slog.Logger, repo RepositoryPort, gateway GatewayPort, enqueue EnqueuePort, activity ActivityPort) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		gateway:  gateway,
		enqueue:  enqueue,
		activity: activity,
		now:      time.Now,
	}
}

// Initiate pushes a collection request to the customer's handset and records
// it PENDING. It returns our reference, not the gateway's.
func (s *Service) Initiate(ctx context.Context, saleID int64, phone string, amount decimal.Decimal) (string, error) {
	if saleID <= 0 {
		return "", fmt.Errorf("%w: sale id required", ErrValidation)
	}
	if strings.TrimSpace(phone) == "" {
		return "", fmt.Errorf("%w: phone required", ErrValidation)
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	reference := "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:16]
	gatewayRef, err := s.gateway.Push(ctx, phone, amount.StringFixed(2), reference)
	if err != nil {
		return "", fmt.Errorf("payments: gateway push: %w", err)
	}

	payment := Payment{
		Reference:   reference,
		SaleID:      saleID,
		Phone:       phone,
		Amount:      amount,
		Status:      StatusPending,
		GatewayRef:  gatewayRef,
		InitiatedAt: s.now(),
	}
	id, err := s.repo.Create(ctx, payment)
	if err != nil {
		return "", fmt.Errorf("payments: persist: %w", err)
	}

	if s.enqueue != nil {
		if err := s.enqueue.EnqueuePoll(ctx, id); err != nil {
			s.logger.Error("enqueue payment poll failed",
				slog.Int64("payment_id", id), slog.Any("error", err))
		}
	}
	return reference, nil
}

// Poll queries the gateway for one payment and applies the result. A payment
// that has been pending longer than PollTimeout is marked TIMEOUT without a
// gateway round trip. It returns the payment's state after the poll and
// whether polling should continue.
func (s *Service) Poll(ctx context.Context, id int64) (Status, bool, error) {
	payment, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", false, err
	}
	if payment.Status.Terminal() {
		return payment.Status, false, nil
	}

	if s.now().Sub(payment.InitiatedAt) > PollTimeout {
		if err := s.resolve(ctx, payment, StatusTimeout, "no confirmation within poll window"); err != nil {
			return "", false, err
		}
		return StatusTimeout, false, nil
	}

	raw, err := s.gateway.QueryStatus(ctx, payment.GatewayRef)
	if err != nil {
		// Transient gateway trouble; keep polling until the timeout.
		s.logger.Warn("payment status query failed",
			slog.Int64("payment_id", id), slog.Any("error", err))
		return StatusPending, true, nil
	}

	switch raw {
	case "SUCCESS":
		if err := s.resolve(ctx, payment, StatusConfirmed, ""); err != nil {
			return "", false, err
		}
		return StatusConfirmed, false, nil
	case "FAILED":
		if err := s.resolve(ctx, payment, StatusFailed, "gateway reported failure"); err != nil {
			return "", false, err
		}
		return StatusFailed, false, nil
	default:
		return StatusPending, true, nil
	}
}

// CompleteManually lets an operator settle a timed-out or pending payment
// after verifying it out of band. Terminal confirmed/failed payments are
// immutable.
func (s *Service) CompleteManually(ctx context.Context, reference string, confirmed bool, note string, actorID int64, actorName string) (Payment, error) {
	payment, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return Payment{}, err
	}
	if payment.Status == StatusConfirmed || payment.Status == StatusFailed {
		return Payment{}, fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, reference, payment.Status)
	}

	status := StatusFailed
	if confirmed {
		status = StatusConfirmed
	}
	if err := s.resolve(ctx, payment, status, note); err != nil {
		return Payment{}, err
	}
	payment.Status = status
	payment.Note = note

	if s.activity != nil {
		_ = s.activity.Record(ctx, shared.ActivityEntry{
			ActorID:   actorID,
			ActorName: actorName,
			Action:    "PAYMENT_MANUAL_COMPLETE",
			Entity:    "payment",
			EntityID:  reference,
			Detail:    fmt.Sprintf("Payment %s manually marked %s", reference, status),
			Meta:      map[string]any{"status": string(status), "note": note},
		})
	}
	return payment, nil
}

// Get loads one payment by our reference.
func (s *Service) Get(ctx context.Context, reference string) (Payment, error) {
	if strings.TrimSpace(reference) == "" {
		return Payment{}, ErrValidation
	}
	return s.repo.GetByReference(ctx, reference)
}

// ListPending returns payments still awaiting confirmation, for the poller.
func (s *Service) ListPending(ctx context.Context) ([]Payment, error) {
	return s.repo.ListPending(ctx)
}

func (s *Service) resolve(ctx context.Context, payment Payment, status Status, note string) error {
	resolvedAt := s.now()
	return s.repo.UpdateStatus(ctx, payment.ID, status, note, &resolvedAt)
}
