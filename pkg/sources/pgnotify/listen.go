// Package pgnotify turns PostgreSQL LISTEN/UNLISTEN into a subscription.
package pgnotify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/JakeFAU/disposer/pkg/dispose"
)

const defaultUnlistenTimeout = 5 * time.Second

// Conn is the part of *pgx.Conn used here. A Conn must be dedicated to one
// listener: the wait loop owns it until the action returns.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
}

// Handler receives notifications for the listened channel.
type Handler func(n *pgconn.Notification)

// Config tunes Listen. The zero value is usable.
type Config struct {
	// UnlistenTimeout bounds the UNLISTEN issued by the action (default 5s).
	UnlistenTimeout time.Duration
	Logger          *zap.Logger
}

// Listen issues LISTEN on conn, then delivers notifications for channel to
// handler from a background goroutine. The returned action stops the loop,
// waits for it, and issues UNLISTEN; an UNLISTEN failure is reported as a
// deregistration failure.
func Listen(ctx context.Context, conn Conn, channel string, handler Handler, cfg Config) (dispose.Action, error) {
	if conn == nil {
		return nil, errors.New("listen: nil connection")
	}
	if channel == "" {
		return nil, errors.New("listen: empty channel")
	}
	if handler == nil {
		return nil, fmt.Errorf("listen %s: nil handler", channel)
	}
	if cfg.UnlistenTimeout <= 0 {
		cfg.UnlistenTimeout = defaultUnlistenTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("channel", channel))

	ident := pgx.Identifier{channel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+ident); err != nil {
		return nil, fmt.Errorf("listen %s: %w", channel, err)
	}

	lctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			n, err := conn.WaitForNotification(lctx)
			if err != nil {
				if lctx.Err() == nil {
					logger.Error("wait for notification failed", zap.Error(err))
				}
				return
			}
			if n.Channel != channel {
				continue
			}
			handler(n)
		}
	}()

	return dispose.Logged(func() error {
		cancel()
		<-done
		uctx, ucancel := context.WithTimeout(context.Background(), cfg.UnlistenTimeout)
		defer ucancel()
		if _, err := conn.Exec(uctx, "UNLISTEN "+ident); err != nil {
			return fmt.Errorf("unlisten %s: %w", channel, err)
		}
		return nil
	}), nil
}
