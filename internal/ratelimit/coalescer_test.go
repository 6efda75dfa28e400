package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCoalescerMergesConcurrentCallsForSameKey(t *testing.T) {
	c := NewCoalescer()
	var calls int32

	var wg sync.WaitGroup
	results := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Do(context.Background(), "acme/repo#1", func() error {
				atomic.AddInt32(&calls, 1)
				return nil
			})
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("underlying fn ran %d times, want 1", got)
	}
	for i, err := range results {
		if err != nil {
			t.Fatalf("result[%d] = %v, want nil", i, err)
		}
	}
}

func TestCoalescerDoesNotMergeDifferentKeys(t *testing.T) {
	c := NewCoalescer()
	var calls int32

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Do(context.Background(), Key("acme/repo", i), func() error {
				atomic.AddInt32(&calls, 1)
				return nil
			})
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 5 {
		t.Fatalf("underlying fn ran %d times, want 5 (one per distinct key)", got)
	}
}

func TestKeyFormatsRepoAndIssueNumber(t *testing.T) {
	if got, want := Key("acme/repo", 42), "acme/repo#42"; got != want {
		t.Fatalf("Key() = %q, want %q", got, want)
	}
	if got, want := Key("acme/repo", -1), "acme/repo#-1"; got != want {
		t.Fatalf("Key() = %q, want %q", got, want)
	}
}
