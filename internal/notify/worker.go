// Copyright (c) 2026 DevSearch. All rights reserved.

package notify

import (
	"context"
	"log/slog"
)

// # Queue

// defaultQueueDepth bounds how many notifications may be pending before
// new ones are dropped.
const defaultQueueDepth = 256

// Queue buffers messages for asynchronous delivery by a background worker.
// Enqueue never blocks the caller: when the buffer is full the message is
// dropped and logged, since notification delivery is best-effort.
type Queue struct {
	sender  Sender
	logger  *slog.Logger
	pending chan Message
}

// NewQueue creates a queue draining into the given sender.
func NewQueue(sender Sender, logger *slog.Logger) *Queue {
	return &Queue{
		sender:  sender,
		logger:  logger,
		pending: make(chan Message, defaultQueueDepth),
	}
}

/*
Enqueue submits a message for delivery.

Parameters:
  - message: Message
*/
func (queue *Queue) Enqueue(message Message) {
	select {
	case queue.pending <- message:
	default:
		queue.logger.Warn("notify_queue_full",
			slog.String("kind", message.Kind),
			slog.String("recipient", message.Recipient),
		)
	}
}

/*
Start launches the delivery worker. It drains the queue until the context is
cancelled, then flushes messages accepted before shutdown; delivery failures
are logged and do not stop the worker.

Parameters:
  - context: context.Context
*/
func (queue *Queue) Start(context context.Context) {
	go func() {
		for {
			select {
			case <-context.Done():
				queue.drain()
				queue.logger.Info("notify_worker_stopped")
				return
			case message := <-queue.pending:
				queue.deliver(message)
			}
		}
	}()
}

// drain flushes whatever the buffer still holds without blocking for more.
func (queue *Queue) drain() {
	for {
		select {
		case message := <-queue.pending:
			queue.deliver(message)
		default:
			return
		}
	}
}

func (queue *Queue) deliver(message Message) {
	if err := queue.sender.Send(message); err != nil {
		queue.logger.Error("notify_delivery_failed",
			slog.String("kind", message.Kind),
			slog.String("recipient", message.Recipient),
			slog.String("error", err.Error()),
		)
		return
	}
	queue.logger.Info("notify_delivered",
		slog.String("kind", message.Kind),
		slog.String("recipient", message.Recipient),
	)
}
