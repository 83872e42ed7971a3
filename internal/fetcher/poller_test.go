package fetcher_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"newsfeed/internal/fetcher"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	bodies []string
}

func (r *recordingPublisher) Publish(_ context.Context, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bodies = append(r.bodies, string(body))
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.bodies...)
}

func TestStartPolling_PublishesEveryCategory(t *testing.T) {
	pub := &recordingPublisher{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		fetcher.StartPolling(ctx, pub, []string{"business", "sports"}, 10*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return len(pub.snapshot()) >= 4 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	got := pub.snapshot()
	require.Equal(t, []string{"business", "sports"}, got[:2])
	require.Equal(t, []string{"business", "sports"}, got[2:4])
}
