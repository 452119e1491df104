// Package gcsnotify manages Cloud Storage bucket notification configs as
// subscriptions: adding a config registers, deleting it deregisters.
package gcsnotify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/disposer/pkg/dispose"
)

const defaultDeleteTimeout = 10 * time.Second

// Bucket is the part of *storage.BucketHandle used here.
type Bucket interface {
	AddNotification(ctx context.Context, n *storage.Notification) (*storage.Notification, error)
	DeleteNotification(ctx context.Context, id string) error
}

// Add creates n on bucket and returns the action deleting the created config.
// The delete runs with its own timeout (10s when deleteTimeout <= 0) because
// the action is invoked long after ctx may have ended.
func Add(ctx context.Context, bucket Bucket, n *storage.Notification, deleteTimeout time.Duration) (dispose.Action, error) {
	if bucket == nil {
		return nil, errors.New("add notification: nil bucket")
	}
	if n == nil {
		return nil, errors.New("add notification: nil notification")
	}
	if deleteTimeout <= 0 {
		deleteTimeout = defaultDeleteTimeout
	}
	created, err := bucket.AddNotification(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("add notification for topic %s: %w", n.TopicID, err)
	}
	id := created.ID
	return dispose.Logged(func() error {
		dctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		defer cancel()
		if err := bucket.DeleteNotification(dctx, id); err != nil {
			return fmt.Errorf("delete notification %s: %w", id, err)
		}
		return nil
	}), nil
}
