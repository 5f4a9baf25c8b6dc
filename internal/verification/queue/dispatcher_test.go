package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "talanta/pkg/domain"
	"talanta/pkg/platform/sentinel"

	"talanta/internal/platform/kafka"
)

func kafkaMessage(payload string) kafka.Message {
	return kafka.Message{Topic: Topic, Value: []byte(payload)}
}

type fakeProcessor struct {
	calls int
	errs  []error
}

func (p *fakeProcessor) Process(_ context.Context, _ id.VerificationID) error {
	p.calls++
	if p.calls <= len(p.errs) {
		return p.errs[p.calls-1]
	}
	return nil
}

type refusingLocker struct{}

func (refusingLocker) Acquire(context.Context, id.VerificationID, time.Duration) (bool, error) {
	return false, nil
}
func (refusingLocker) Release(context.Context, id.VerificationID) error { return nil }

func newDispatcher(p Processor, l Locker) *Dispatcher {
	d := NewDispatcher(p, l, DispatcherConfig{
		MaxAttempts:  3,
		RetryBackoff: time.Minute,
	}, nil, slog.New(slog.DiscardHandler))
	d.sleep = func(context.Context, time.Duration) error { return nil }
	return d
}

func TestDispatch_SucceedsFirstAttempt(t *testing.T) {
	p := &fakeProcessor{}
	d := newDispatcher(p, NopLocker{})

	require.NoError(t, d.Dispatch(context.Background(), Job{VerificationID: id.NewVerificationID()}))
	assert.Equal(t, 1, p.calls)
}

func TestDispatch_RetriesTransientFailures(t *testing.T) {
	transient := fmt.Errorf("fetching document: %w", sentinel.ErrUnavailable)
	p := &fakeProcessor{errs: []error{transient, transient}}
	d := newDispatcher(p, NopLocker{})

	require.NoError(t, d.Dispatch(context.Background(), Job{VerificationID: id.NewVerificationID()}))
	assert.Equal(t, 3, p.calls, "two retries then success")
}

func TestDispatch_AbandonsAfterMaxAttempts(t *testing.T) {
	transient := fmt.Errorf("neo4j down: %w", sentinel.ErrUnavailable)
	p := &fakeProcessor{errs: []error{transient, transient, transient, transient}}
	d := newDispatcher(p, NopLocker{})

	err := d.Dispatch(context.Background(), Job{VerificationID: id.NewVerificationID()})
	require.NoError(t, err, "an abandoned job is acknowledged, not redelivered")
	assert.Equal(t, 3, p.calls)
}

func TestDispatch_PermanentFailureDoesNotRetry(t *testing.T) {
	p := &fakeProcessor{errs: []error{errors.New("corrupt record")}}
	d := newDispatcher(p, NopLocker{})

	err := d.Dispatch(context.Background(), Job{VerificationID: id.NewVerificationID()})
	require.Error(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestDispatch_SkipsWhenLockHeld(t *testing.T) {
	p := &fakeProcessor{}
	d := newDispatcher(p, refusingLocker{})

	require.NoError(t, d.Dispatch(context.Background(), Job{VerificationID: id.NewVerificationID()}))
	assert.Zero(t, p.calls)
}

func TestDispatch_StopsRetryingWhenContextCancelled(t *testing.T) {
	transient := fmt.Errorf("store: %w", sentinel.ErrUnavailable)
	p := &fakeProcessor{errs: []error{transient, transient, transient}}
	d := newDispatcher(p, NopLocker{})
	d.sleep = sleepCtx

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Dispatch(ctx, Job{VerificationID: id.NewVerificationID()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.calls)
}

func TestHandle_DropsMalformedPayload(t *testing.T) {
	p := &fakeProcessor{}
	d := newDispatcher(p, NopLocker{})

	msg := kafkaMessage("not json")
	err := d.Handle(context.Background(), &msg)
	require.NoError(t, err)
	assert.Zero(t, p.calls)
}

func TestDecodeJob(t *testing.T) {
	recID := id.NewVerificationID()
	msg := kafkaMessage(`{"verification_id":"` + recID.String() + `","attempt":2}`)

	job, err := DecodeJob(&msg)
	require.NoError(t, err)
	assert.Equal(t, recID, job.VerificationID)
	assert.Equal(t, 2, job.Attempt)

	bad := kafkaMessage(`{"verification_id":"not-a-uuid"}`)
	_, err = DecodeJob(&bad)
	assert.Error(t, err)
}
