package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"T2V/models"

	"github.com/streadway/amqp"
	"golang.org/x/time/rate"
)

type fakeLocker struct {
	held     bool
	acquired []string
	released []string
}

func (l *fakeLocker) TryAcquireLock(ctx context.Context, jobID string) (bool, error) {
	if l.held {
		return false, nil
	}
	l.acquired = append(l.acquired, jobID)
	return true, nil
}

func (l *fakeLocker) ReleaseLock(ctx context.Context, jobID string) error {
	l.released = append(l.released, jobID)
	return nil
}

type fakeAck struct {
	acks  int
	nacks int
	// requeue flag of the last Nack
	requeued bool
}

func (a *fakeAck) Ack(tag uint64, multiple bool) error {
	a.acks++
	return nil
}

func (a *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	a.nacks++
	a.requeued = requeue
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error {
	a.nacks++
	a.requeued = requeue
	return nil
}

func testQueue(locker JobLocker) *VideoQueue {
	return &VideoQueue{
		locker:      locker,
		concurrency: 1,
		limiter:     rate.NewLimiter(rate.Inf, 1),
	}
}

func delivery(t *testing.T, ack *fakeAck, jobID string, attempts int) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(models.Payload{JobID: jobID, Text: "some text"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return amqp.Delivery{
		Acknowledger: ack,
		Body:         body,
		Headers:      amqp.Table{attemptsHeader: int32(attempts)},
	}
}

func TestProcessSkipsDuplicateDelivery(t *testing.T) {
	locker := &fakeLocker{held: true}
	q := testQueue(locker)
	ack := &fakeAck{}

	handled := 0
	q.process(context.Background(), delivery(t, ack, "42", 1), func(ctx context.Context, p models.Payload, attempt int) error {
		handled++
		return nil
	})

	if handled != 0 {
		t.Fatalf("handler invoked %d times for a duplicate delivery", handled)
	}
	if ack.acks != 1 {
		t.Errorf("acks = %d, want 1", ack.acks)
	}
	if ack.nacks != 0 {
		t.Errorf("nacks = %d, want 0", ack.nacks)
	}
	if len(locker.released) != 0 {
		t.Errorf("released a lock that was never acquired: %v", locker.released)
	}
}

func TestProcessAcksAndReleasesOnSuccess(t *testing.T) {
	locker := &fakeLocker{}
	q := testQueue(locker)
	ack := &fakeAck{}

	var gotJob string
	var gotAttempt int
	q.process(context.Background(), delivery(t, ack, "7", 2), func(ctx context.Context, p models.Payload, attempt int) error {
		gotJob = p.JobID
		gotAttempt = attempt
		return nil
	})

	if gotJob != "7" {
		t.Fatalf("handler got job %q, want 7", gotJob)
	}
	if gotAttempt != 2 {
		t.Errorf("handler got attempt %d, want 2", gotAttempt)
	}
	if ack.acks != 1 {
		t.Errorf("acks = %d, want 1", ack.acks)
	}
	if len(locker.released) != 1 || locker.released[0] != "7" {
		t.Errorf("released = %v, want [7]", locker.released)
	}
}

func TestProcessDeadLettersOnExhaustedAttempts(t *testing.T) {
	locker := &fakeLocker{}
	q := testQueue(locker)
	ack := &fakeAck{}

	q.process(context.Background(), delivery(t, ack, "9", MaxAttempts), func(ctx context.Context, p models.Payload, attempt int) error {
		return errors.New("stage failed")
	})

	if ack.nacks != 1 {
		t.Fatalf("nacks = %d, want 1", ack.nacks)
	}
	if ack.requeued {
		t.Error("exhausted delivery was requeued instead of dead-lettered")
	}
	if ack.acks != 0 {
		t.Errorf("acks = %d, want 0", ack.acks)
	}
	if len(locker.released) != 1 {
		t.Errorf("released = %v, want one release", locker.released)
	}
}

func TestProcessRejectsMalformedPayload(t *testing.T) {
	locker := &fakeLocker{}
	q := testQueue(locker)
	ack := &fakeAck{}

	handled := 0
	q.process(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("not json")}, func(ctx context.Context, p models.Payload, attempt int) error {
		handled++
		return nil
	})

	if handled != 0 {
		t.Fatalf("handler invoked for malformed payload")
	}
	if ack.nacks != 1 || ack.requeued {
		t.Errorf("nacks = %d requeued = %v, want one dead-lettering nack", ack.nacks, ack.requeued)
	}
	if len(locker.acquired) != 0 {
		t.Errorf("lock acquired for malformed payload: %v", locker.acquired)
	}
}

func TestRetryDelayDoubles(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
	}
	for _, tt := range tests {
		if got := retryDelay(tt.attempts); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestAttemptCount(t *testing.T) {
	if got := attemptCount(amqp.Delivery{}); got != 1 {
		t.Errorf("missing header: got %d, want 1", got)
	}
	if got := attemptCount(amqp.Delivery{Headers: amqp.Table{attemptsHeader: int32(2)}}); got != 2 {
		t.Errorf("int32 header: got %d, want 2", got)
	}
	if got := attemptCount(amqp.Delivery{Headers: amqp.Table{attemptsHeader: int64(5)}}); got != 5 {
		t.Errorf("int64 header: got %d, want 5", got)
	}
}
