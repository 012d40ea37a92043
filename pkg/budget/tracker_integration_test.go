//go:build integration

package budget

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a Redis container and returns a client.
func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = redisContainer.Terminate(context.Background())
	})

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client
}

func TestTracker_Integration_RoundTrip(t *testing.T) {
	client := setupRedisContainer(t)
	tracker := NewTracker(client, testLogger())
	ctx := context.Background()

	headers := http.Header{}
	headers.Set(HeaderErrorLimitRemain, "42")
	headers.Set(HeaderErrorLimitReset, "55")

	if err := tracker.UpdateFromHeaders(ctx, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() failed: %v", err)
	}

	state := tracker.Read(ctx)
	if state.ErrorCount != 58 {
		t.Errorf("ErrorCount = %d, want 58", state.ErrorCount)
	}
	if state.Status() != StatusYellow {
		t.Errorf("Status() = %s, want yellow", state.Status())
	}

	remaining := state.TimeUntilReset()
	if remaining < 50*time.Second || remaining > 56*time.Second {
		t.Errorf("TimeUntilReset() = %v, want about 55s", remaining)
	}
}

func TestTracker_Integration_ConcurrentWritersLastWriteWins(t *testing.T) {
	client := setupRedisContainer(t)
	tracker := NewTracker(client, testLogger())
	ctx := context.Background()

	// Many concurrent overwrites must leave one of the written values,
	// never a blend: the count is an overwrite, not an increment.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(remaining int) {
			defer wg.Done()
			if err := tracker.Update(ctx, remaining, 60*time.Second); err != nil {
				t.Errorf("Update(%d) failed: %v", remaining, err)
			}
		}(80 + i)
	}
	wg.Wait()

	state := tracker.Read(ctx)
	if state.ErrorCount < 1 || state.ErrorCount > 20 {
		t.Errorf("ErrorCount = %d, want a single written value in [1,20]", state.ErrorCount)
	}
}
