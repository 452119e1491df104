package gcsnotify_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/api/option"

	"github.com/JakeFAU/disposer/pkg/dispose"
	"github.com/JakeFAU/disposer/pkg/sources/gcsnotify"
)

// MockBucket mocks the gcsnotify.Bucket interface.
type MockBucket struct {
	mock.Mock
}

// AddNotification satisfies gcsnotify.Bucket for the mock.
func (m *MockBucket) AddNotification(ctx context.Context, n *storage.Notification) (*storage.Notification, error) {
	args := m.Called(ctx, n)
	created, _ := args.Get(0).(*storage.Notification)
	return created, args.Error(1)
}

// DeleteNotification satisfies gcsnotify.Bucket for the mock.
func (m *MockBucket) DeleteNotification(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// fakeNotifications simulates the notificationConfigs JSON API for one bucket.
type fakeNotifications struct {
	mu      sync.Mutex
	created int
	deleted []string
}

func (f *fakeNotifications) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/b/test-bucket/notificationConfigs"):
		f.created++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"%d","topic":"//pubsub.googleapis.com/projects/proj/topics/uploads","payload_format":"JSON_API_V1"}`, f.created)
	case r.Method == http.MethodDelete && strings.Contains(r.URL.Path, "/b/test-bucket/notificationConfigs/"):
		f.deleted = append(f.deleted, r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:])
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unexpected request", http.StatusNotFound)
	}
}

func newBucket(t *testing.T, handler http.Handler) *storage.BucketHandle {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client.Bucket("test-bucket")
}

func TestAddThenDelete(t *testing.T) {
	t.Parallel()

	fake := &fakeNotifications{}
	bucket := newBucket(t, fake)

	off, err := gcsnotify.Add(context.Background(), bucket, &storage.Notification{
		TopicProjectID: "proj",
		TopicID:        "uploads",
		PayloadFormat:  storage.JSONPayload,
	}, 0)
	require.NoError(t, err)

	off()
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.created)
	assert.Equal(t, []string{"1"}, fake.deleted)
}

func TestAddFailureReturnsError(t *testing.T) {
	t.Parallel()

	bucket := newBucket(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	}))

	_, err := gcsnotify.Add(context.Background(), bucket, &storage.Notification{
		TopicProjectID: "proj",
		TopicID:        "uploads",
		PayloadFormat:  storage.JSONPayload,
	}, 0)
	require.Error(t, err)

	_, err = gcsnotify.Add(context.Background(), nil, &storage.Notification{}, 0)
	require.Error(t, err)
}

// TestDeleteFailureIsLogged verifies the delete error is logged by whoever runs the action.
func TestDeleteFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	dispose.SetLogger(zap.New(core))
	t.Cleanup(func() { dispose.SetLogger(nil) })

	bucket := new(MockBucket)
	n := &storage.Notification{TopicProjectID: "proj", TopicID: "uploads"}
	bucket.On("AddNotification", mock.Anything, n).Return(&storage.Notification{ID: "9"}, nil)
	bucket.On("DeleteNotification", mock.Anything, "9").Return(fmt.Errorf("bucket gone"))

	off, err := gcsnotify.Add(context.Background(), bucket, n, time.Second)
	require.NoError(t, err)
	require.NotPanics(t, func() { dispose.InvokeAll(off) })

	bucket.AssertExpectations(t)
	entries := logs.FilterMessage("deregistration failed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "bucket gone")
}
