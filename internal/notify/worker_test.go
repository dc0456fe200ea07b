// Copyright (c) 2026 DevSearch. All rights reserved.

package notify_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devsearchhq/devsearch/internal/notify"
)

// recordingSender captures delivered messages and can be told to fail.
type recordingSender struct {
	mu        sync.Mutex
	delivered []notify.Message
	failNext  bool
	signal    chan struct{}
}

func newRecordingSender() *recordingSender {
	return &recordingSender{signal: make(chan struct{}, 64)}
}

func (sender *recordingSender) Send(message notify.Message) error {
	sender.mu.Lock()
	defer sender.mu.Unlock()

	defer func() { sender.signal <- struct{}{} }()

	if sender.failNext {
		sender.failNext = false
		return errors.New("smtp unreachable")
	}

	sender.delivered = append(sender.delivered, message)
	return nil
}

func (sender *recordingSender) count() int {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	return len(sender.delivered)
}

func waitForSignal(t *testing.T, sender *recordingSender) {
	t.Helper()
	select {
	case <-sender.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery attempt")
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

/*
TestQueue_Delivers verifies enqueued messages reach the sender in order.
*/
func TestQueue_Delivers(t *testing.T) {
	sender := newRecordingSender()
	queue := notify.NewQueue(sender, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	queue.Enqueue(notify.Message{Kind: notify.KindVerificationOtp, Recipient: "a@devsearch.io"})
	queue.Enqueue(notify.Message{Kind: notify.KindWelcome, Recipient: "a@devsearch.io"})

	waitForSignal(t, sender)
	waitForSignal(t, sender)

	require.Equal(t, 2, sender.count())
	assert.Equal(t, notify.KindVerificationOtp, sender.delivered[0].Kind)
	assert.Equal(t, notify.KindWelcome, sender.delivered[1].Kind)
}

/*
TestQueue_SurvivesDeliveryFailure verifies a failed send does not stop the
worker from draining later messages.
*/
func TestQueue_SurvivesDeliveryFailure(t *testing.T) {
	sender := newRecordingSender()
	sender.failNext = true
	queue := notify.NewQueue(sender, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	queue.Enqueue(notify.Message{Kind: notify.KindResetOtp, Recipient: "a@devsearch.io"})
	queue.Enqueue(notify.Message{Kind: notify.KindResetSuccess, Recipient: "a@devsearch.io"})

	waitForSignal(t, sender) // failed attempt
	waitForSignal(t, sender) // successful attempt

	require.Equal(t, 1, sender.count())
	assert.Equal(t, notify.KindResetSuccess, sender.delivered[0].Kind)
}

/*
TestQueue_DrainsPendingOnShutdown verifies messages accepted before the
context was cancelled are still delivered before the worker exits.
*/
func TestQueue_DrainsPendingOnShutdown(t *testing.T) {
	sender := newRecordingSender()
	queue := notify.NewQueue(sender, testLogger())

	queue.Enqueue(notify.Message{Kind: notify.KindVerificationOtp, Recipient: "a@devsearch.io"})
	queue.Enqueue(notify.Message{Kind: notify.KindWelcome, Recipient: "a@devsearch.io"})
	queue.Enqueue(notify.Message{Kind: notify.KindResetOtp, Recipient: "a@devsearch.io"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	queue.Start(ctx)

	waitForSignal(t, sender)
	waitForSignal(t, sender)
	waitForSignal(t, sender)

	assert.Equal(t, 3, sender.count())
}

/*
TestQueue_EnqueueNeverBlocks verifies submissions beyond the buffer are
dropped instead of stalling the caller.
*/
func TestQueue_EnqueueNeverBlocks(t *testing.T) {
	sender := newRecordingSender()
	queue := notify.NewQueue(sender, testLogger())
	// Worker intentionally not started: the buffer fills and overflow drops.

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			queue.Enqueue(notify.Message{Kind: notify.KindWelcome, Recipient: "a@devsearch.io"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked on a full buffer")
	}
}
