// Package pubsubrx runs a Pub/Sub streaming pull as a subscription whose
// deregistration action stops the pull.
package pubsubrx

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/JakeFAU/disposer/pkg/dispose"
)

// Receiver is the part of *pubsub.Subscription used here.
type Receiver interface {
	ID() string
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Handler processes one message. It is responsible for Ack/Nack.
type Handler func(ctx context.Context, msg *pubsub.Message)

// Receive starts sub.Receive on a background goroutine and returns the action
// that cancels it and waits until the pull has returned. The action must not
// be invoked from inside handler, since Receive waits for outstanding
// handlers before returning.
func Receive(ctx context.Context, sub Receiver, handler Handler, logger *zap.Logger) (dispose.Action, error) {
	if sub == nil {
		return nil, errors.New("pubsub receive: nil subscription")
	}
	if handler == nil {
		return nil, fmt.Errorf("pubsub receive %s: nil handler", sub.ID())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("subscription", sub.ID()))

	rctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := sub.Receive(rctx, func(ctx context.Context, msg *pubsub.Message) {
			handler(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("pubsub receive stopped", zap.Error(err))
			return
		}
		logger.Debug("pubsub receive stopped")
	}()

	return func() {
		cancel()
		<-done
	}, nil
}
