// Package queue carries job payloads over RabbitMQ with dedup, bounded
// retries and exhaustion to a dead-letter queue.
package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"T2V/models"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	mainQueue       = "video_jobs"
	deadLetterQueue = "video_jobs_dlq"
	dlxExchange     = "video_jobs_dlx"
	retryExchange   = "video_jobs_retry"

	// MaxAttempts counts the first delivery plus retries. A payload that
	// fails MaxAttempts times lands in the dead-letter queue.
	MaxAttempts = 3

	// First retry delay; each further retry doubles it.
	retryBaseDelay = 5 * time.Second

	attemptsHeader = "x-attempts"
)

// Handler processes one job payload. attempt starts at 1; a non-nil return
// schedules a retry until attempt reaches MaxAttempts.
type Handler func(ctx context.Context, p models.Payload, attempt int) error

// JobLocker is the per-job dedup lock, satisfied by store.JobStore.
type JobLocker interface {
	TryAcquireLock(ctx context.Context, jobID string) (bool, error)
	ReleaseLock(ctx context.Context, jobID string) error
}

type VideoQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	locker      JobLocker
	concurrency int
	limiter     *rate.Limiter

	closeOnce sync.Once
}

// NewVideoQueue dials RabbitMQ and declares the main queue, its dead-letter
// pair, and the delayed exchange used for retry backoff. startsPerMin caps
// how many jobs may begin per minute across this consumer.
func NewVideoQueue(dsn string, locker JobLocker, concurrency, startsPerMin int) (*VideoQueue, error) {
	conn, err := amqp.Dial(dsn)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if concurrency < 1 {
		concurrency = 1
	}
	if err := ch.Qos(concurrency, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if startsPerMin > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(startsPerMin)), 1)
	}

	return &VideoQueue{
		conn:        conn,
		ch:          ch,
		locker:      locker,
		concurrency: concurrency,
		limiter:     limiter,
	}, nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(deadLetterQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(deadLetterQueue, deadLetterQueue, dlxExchange, false, nil); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(mainQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": deadLetterQueue,
	}); err != nil {
		return err
	}

	// Delayed exchange for retry backoff (rabbitmq_delayed_message_exchange
	// plugin). Retried payloads re-enter the main queue after x-delay.
	if err := ch.ExchangeDeclare(retryExchange, "x-delayed-message", true, false, false, false, amqp.Table{
		"x-delayed-type": "direct",
	}); err != nil {
		return err
	}
	return ch.QueueBind(mainQueue, mainQueue, retryExchange, false, nil)
}

// Publish enqueues a payload for its first delivery.
func (q *VideoQueue) Publish(p models.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return q.ch.Publish("", mainQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{attemptsHeader: int32(1)},
	})
}

// Consume runs the delivery loop until ctx is cancelled or the channel
// closes. Cancelling ctx stops intake but lets in-flight handlers finish.
// Each payload is handled under the per-job lock; failures go back through
// the delayed exchange with doubled delay until attempts run out.
func (q *VideoQueue) Consume(ctx context.Context, handle Handler) error {
	consumerTag := "video-worker-" + uuid.NewString()
	deliveries, err := q.ch.Consume(mainQueue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}

	sem := make(chan struct{}, q.concurrency)
	var wg sync.WaitGroup
	workCtx := context.Background()

	for {
		select {
		case <-ctx.Done():
			_ = q.ch.Cancel(consumerTag, false)
			wg.Wait()
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				wg.Wait()
				return nil
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(del amqp.Delivery) {
				defer func() { <-sem; wg.Done() }()
				q.process(workCtx, del, handle)
			}(d)
		}
	}
}

func (q *VideoQueue) process(ctx context.Context, del amqp.Delivery, handle Handler) {
	var p models.Payload
	if err := json.Unmarshal(del.Body, &p); err != nil {
		zap.L().Error("invalid job payload", zap.Error(err))
		_ = del.Nack(false, false)
		return
	}

	ok, err := q.locker.TryAcquireLock(ctx, p.JobID)
	if err != nil {
		zap.L().Error("dedup lock check failed", zap.String("job_id", p.JobID), zap.Error(err))
		_ = del.Nack(false, true)
		return
	}
	if !ok {
		// another worker holds this job; duplicate delivery
		zap.L().Info("skipping duplicate delivery", zap.String("job_id", p.JobID))
		_ = del.Ack(false)
		return
	}
	defer func() {
		if err := q.locker.ReleaseLock(context.Background(), p.JobID); err != nil {
			zap.L().Warn("failed to release job lock", zap.String("job_id", p.JobID), zap.Error(err))
		}
	}()

	if err := q.limiter.Wait(ctx); err != nil {
		_ = del.Nack(false, true)
		return
	}

	attempts := attemptCount(del)
	if err := handle(ctx, p, attempts); err != nil {
		if attempts >= MaxAttempts {
			zap.L().Error("job attempts exhausted",
				zap.String("job_id", p.JobID),
				zap.Int("attempts", attempts),
				zap.Error(err))
			// reject without requeue routes to the DLQ
			_ = del.Nack(false, false)
			return
		}
		zap.L().Warn("job failed, scheduling retry",
			zap.String("job_id", p.JobID),
			zap.Int("attempt", attempts),
			zap.Error(err))
		if rerr := q.publishRetry(del.Body, attempts); rerr != nil {
			zap.L().Error("failed to schedule retry", zap.String("job_id", p.JobID), zap.Error(rerr))
			_ = del.Nack(false, true)
			return
		}
		_ = del.Ack(false)
		return
	}
	_ = del.Ack(false)
}

// retryDelay is the backoff before the next delivery: 5s after the first
// failed attempt, doubling per further attempt.
func retryDelay(attempts int) time.Duration {
	delay := retryBaseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	return delay
}

// publishRetry re-enqueues the payload through the delayed exchange.
func (q *VideoQueue) publishRetry(body []byte, attempts int) error {
	delay := retryDelay(attempts)
	return q.ch.Publish(retryExchange, mainQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Headers: amqp.Table{
			attemptsHeader: int32(attempts + 1),
			"x-delay":      delay.Milliseconds(),
		},
	})
}

func attemptCount(del amqp.Delivery) int {
	if v, ok := del.Headers[attemptsHeader]; ok {
		switch n := v.(type) {
		case int32:
			return int(n)
		case int64:
			return int(n)
		}
	}
	return 1
}

func (q *VideoQueue) Close() error {
	var err error
	q.closeOnce.Do(func() {
		if q.ch != nil {
			_ = q.ch.Close()
		}
		if q.conn != nil {
			err = q.conn.Close()
		}
	})
	return err
}
