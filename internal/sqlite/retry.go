package sqlite

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// retrier re-runs an operation for as long as it fails with a transient
// lock error. Any other error is returned from the attempt that produced it.
//
// With maxAttempts zero the loop never gives up and with backoff zero it
// spins without sleeping: contention windows on a single-writer engine are
// short, and callers have nothing useful to do with a "try again" error.
type retrier struct {
	isTransient func(error) bool
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger

	retries atomic.Uint64
	giveUps atomic.Uint64
}

func newRetrier(isTransient func(error) bool, maxAttempts int, backoff time.Duration, logger *slog.Logger) *retrier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &retrier{
		isTransient: isTransient,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logger,
	}
}

// do runs fn until it returns nil or a non-transient error. When a maximum
// number of attempts is configured and reached, the last transient error is
// returned wrapped in types.ErrBusy.
func (r *retrier) do(op string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !r.isTransient(err) {
			return err
		}
		if r.maxAttempts > 0 && attempt >= r.maxAttempts {
			r.giveUps.Add(1)
			return fmt.Errorf("%w: %s after %d attempts: %w", types.ErrBusy, op, attempt, err)
		}
		r.retries.Add(1)
		r.logger.Debug("retrying after lock contention", "op", op, "attempt", attempt)
		if r.backoff > 0 {
			time.Sleep(r.delay())
		}
	}
}

// delay returns backoff scaled by a random factor in [1, 2).
func (r *retrier) delay() time.Duration {
	return r.backoff + time.Duration(rand.Int64N(int64(r.backoff)))
}
