package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-passport-recognizer/redis"
)

// newTestRedisBus connects to the redis named by TEST_REDIS_HOST, skipping
// the test when none is configured.
func newTestRedisBus(t *testing.T) *RedisBus {
	t.Helper()
	host := os.Getenv("TEST_REDIS_HOST")
	if host == "" {
		t.Skip("TEST_REDIS_HOST not set")
	}
	client, err := redis.NewRedisClient(&redis.RedisConfig{Host: host, Port: 6379, Namespace: "test"})
	require.NoError(t, err)
	bus := NewRedisBus(client, "test-"+t.Name())
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestRedisBusRoundTrip(t *testing.T) {
	bus := newTestRedisBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, unsubscribe, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	defer unsubscribe()

	sent := Event{Type: TypeNFCScanSuccess, ScanID: "scan-1", FaceImageURL: "/api/nfc/scan-1/face.jpg", Passport: map[string]any{"first_name": "Anna"}}
	require.NoError(t, bus.Publish(ctx, sent))

	select {
	case got := <-stream:
		require.Equal(t, sent, got)
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}
}

func TestRedisBusUnsubscribeClosesStream(t *testing.T) {
	bus := newTestRedisBus(t)

	stream, unsubscribe, err := bus.Subscribe(context.Background())
	require.NoError(t, err)
	unsubscribe()
	unsubscribe()

	require.Eventually(t, func() bool {
		_, ok := <-stream
		return !ok
	}, time.Second, 10*time.Millisecond)
}
