package session

import (
	"context"
	"fmt"
	"time"

	"github.com/hako/durafmt"
	"golang.org/x/time/rate"
)

// Reconnector paces upstream reconnect attempts with a token bucket
// rather than a hand-rolled exponential counter, so a flapping
// upstream can't spin the session in a tight retry loop. Retry is
// unbounded in total duration but bounded in cadence (§4.6, §5
// "Cancellation and timeouts").
type Reconnector struct {
	limiter   *rate.Limiter
	cap       time.Duration
	attempts  int
	startedAt time.Time
}

// NewReconnector builds a reconnector pacing at ratePerSecond with
// the given burst allowance, capping the elapsed time Describe reports
// at backoffCap.
func NewReconnector(ratePerSecond float64, burst int, backoffCap time.Duration) *Reconnector {
	if ratePerSecond <= 0 {
		ratePerSecond = 0.2
	}
	if burst <= 0 {
		burst = 1
	}
	return &Reconnector{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		cap:     backoffCap,
	}
}

// Wait blocks until the next reconnect attempt is permitted, or ctx
// is canceled.
func (r *Reconnector) Wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	if r.startedAt.IsZero() {
		r.startedAt = time.Now()
	}
	r.attempts++
	return nil
}

// Reset clears the attempt counter on a successful reconnect.
func (r *Reconnector) Reset() {
	r.attempts = 0
	r.startedAt = time.Time{}
}

// Attempts reports how many reconnect attempts have been made since
// the last success.
func (r *Reconnector) Attempts() int {
	return r.attempts
}

// Describe renders a human-readable summary of the current reconnect
// run, used in the upstream reconnect-failure log line — e.g.
// "reconnecting (attempt 4, 37 seconds elapsed)".
func (r *Reconnector) Describe() string {
	if r.attempts == 0 {
		return "not reconnecting"
	}
	elapsed := time.Since(r.startedAt)
	if r.cap > 0 && elapsed > r.cap {
		elapsed = r.cap
	}
	return fmt.Sprintf("reconnecting (attempt %d, %s elapsed)", r.attempts, durafmt.Parse(elapsed).LimitFirstN(2))
}
