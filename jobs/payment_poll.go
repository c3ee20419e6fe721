package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pharmapos/pharmapos/internal/payments"
)

// pollRetryDelay spaces consecutive polls of the same payment.
const pollRetryDelay = 10 * time.Second

// PaymentPollJob drives one pending payment towards a terminal state. Each
// run performs a single gateway query; a still-pending payment is retried via
// the queue until the service reports CONFIRMED, FAILED or TIMEOUT.
type PaymentPollJob struct {
	Service *payments.Service
	Logger  *slog.Logger
}

// NewPaymentPollJob initialises the poll handler.
func NewPaymentPollJob(service *payments.Service, logger *slog.Logger) *PaymentPollJob {
	return &PaymentPollJob{Service: service, Logger: logger}
}

// Handle executes one poll.
func (j *PaymentPollJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("payment poll: handler not configured")
	}
	var payload PaymentPollPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.PaymentID <= 0 {
		return asynq.SkipRetry
	}

	status, again, err := j.Service.Poll(ctx, payload.PaymentID)
	if err != nil {
		if errors.Is(err, payments.ErrNotFound) {
			return asynq.SkipRetry
		}
		return err
	}
	j.Logger.Info("payment polled",
		slog.Int64("payment_id", payload.PaymentID),
		slog.String("status", string(status)))

	if again {
		// Fail the run so asynq retries it with backoff.
		return fmt.Errorf("payment %d still pending, retry in %s", payload.PaymentID, pollRetryDelay)
	}
	return nil
}
