package scheduler

import (
	"context"
	"math/rand"
	"time"

	"github.com/ralphcore/ralph/internal/tunables"
)

// WaitForPauseCleared polls isCleared with exponential backoff in
// [PauseBackoffMin, PauseBackoffMax] plus jitter, returning when isCleared
// reports true or ctx is cancelled.
func WaitForPauseCleared(ctx context.Context, isCleared func() (bool, error)) error {
	delay := tunables.PauseBackoffMin
	for {
		cleared, err := isCleared()
		if err != nil {
			return err
		}
		if cleared {
			return nil
		}
		jitter := time.Duration(rand.Int63n(int64(tunables.PauseJitterMax) + 1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay + jitter):
		}
		delay *= 2
		if delay > tunables.PauseBackoffMax {
			delay = tunables.PauseBackoffMax
		}
	}
}
