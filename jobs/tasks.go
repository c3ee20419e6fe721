package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPaymentPoll queries the gateway for one pending payment.
	TaskPaymentPoll = "payments:poll"
	// TaskStockScan looks for low-stock and near-expiry products.
	TaskStockScan = "stock:scan"
	// TaskReportsWarmup precomputes the dashboard cache.
	TaskReportsWarmup = "reports:warmup"
)

// PaymentPollPayload identifies the payment to poll.
type PaymentPollPayload struct {
	PaymentID int64 `json:"payment_id"`
}

// NewPaymentPollTask constructs an Asynq task.
func NewPaymentPollTask(payload PaymentPollPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentPoll, data), nil
}

// NewStockScanTask constructs the cron stock scan task.
func NewStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskStockScan, nil)
}

// NewReportsWarmupTask constructs the cron warmup task.
func NewReportsWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskReportsWarmup, nil)
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueuePoll schedules the first status poll for a payment. Retries with
// backoff carry the polling forward until the handler reports a terminal
// state.
func (c *Client) EnqueuePoll(ctx context.Context, paymentID int64) error {
	task, err := NewPaymentPollTask(PaymentPollPayload{PaymentID: paymentID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault), asynq.MaxRetry(30))
	return err
}

// EnqueueWarmup schedules an off-cycle dashboard warmup. Uniqueness collapses
// a burst of writes into a single refresh; callers should tolerate
// asynq.ErrDuplicateTask.
func (c *Client) EnqueueWarmup(ctx context.Context) error {
	_, err := c.client.EnqueueContext(ctx, NewReportsWarmupTask(),
		asynq.Queue(QueueDefault), asynq.Unique(time.Minute))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
