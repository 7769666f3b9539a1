package tmdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("AllowsRequestsWithinLimit", func(t *testing.T) {
		rl := newRateLimiter(5, 1*time.Second)

		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := rl.wait(ctx); err != nil {
				t.Errorf("wait() request %d error = %v, want nil", i+1, err)
			}
		}
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Errorf("5 requests under limit took %v, expected < 100ms", elapsed)
		}
	})

	t.Run("BlocksExcessRequests", func(t *testing.T) {
		rl := newRateLimiter(2, 300*time.Millisecond)

		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := rl.wait(ctx); err != nil {
				t.Errorf("wait() request %d error = %v, want nil", i+1, err)
			}
		}
		if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
			t.Errorf("3rd request took %v, expected at least 300ms delay", elapsed)
		}
	})

	t.Run("CleansUpOldRequests", func(t *testing.T) {
		rl := newRateLimiter(3, 200*time.Millisecond)
		for i := 0; i < 3; i++ {
			_ = rl.wait(ctx)
		}

		time.Sleep(250 * time.Millisecond)

		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := rl.wait(ctx); err != nil {
				t.Errorf("wait() after window request %d error = %v", i+1, err)
			}
		}
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Errorf("Requests after window took %v, expected < 100ms", elapsed)
		}
	})

	t.Run("ConcurrentRequests", func(t *testing.T) {
		rl := newRateLimiter(10, 200*time.Millisecond)

		var wg sync.WaitGroup
		var mu sync.Mutex
		successCount := 0
		for i := 0; i < 15; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := rl.wait(ctx); err == nil {
					mu.Lock()
					successCount++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if successCount != 15 {
			t.Errorf("Only %d concurrent requests succeeded, expected 15", successCount)
		}
	})

	t.Run("StopsWhenContextDone", func(t *testing.T) {
		rl := newRateLimiter(1, 10*time.Second)
		if err := rl.wait(ctx); err != nil {
			t.Fatalf("wait() first request error = %v", err)
		}

		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		start := time.Now()
		err := rl.wait(cctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("wait() error = %v, want deadline exceeded", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("cancelled wait took %v", elapsed)
		}
	})
}
