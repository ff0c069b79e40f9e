package scheduler

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Poller defaults.
const (
	DefaultPollInterval     = 10 * time.Second
	DefaultRetryInterval    = 2 * time.Second
	DefaultMaxRetryInterval = time.Minute
)

// Poller waits for a job to reach a terminal state.
//
// Non-terminal states are re-queried after Interval. Query failures are
// logged and retried with capped exponential backoff starting at
// RetryInterval; a successful query resets the backoff. The wait ends only on
// a terminal state, caller cancellation, or Timeout.
type Poller struct {
	Querier          StateQuerier
	Interval         time.Duration
	RetryInterval    time.Duration
	MaxRetryInterval time.Duration
	Timeout          time.Duration // Zero means unbounded
	Logger           *zap.Logger

	// OnState, if set, is called after every successful query.
	OnState func(jobID int, state JobState)
}

func (p *Poller) log() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Poller) interval() time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}
	return DefaultPollInterval
}

func (p *Poller) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = DefaultRetryInterval
	if p.RetryInterval > 0 {
		b.InitialInterval = p.RetryInterval
	}
	b.MaxInterval = DefaultMaxRetryInterval
	if p.MaxRetryInterval > 0 {
		b.MaxInterval = p.MaxRetryInterval
	}
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Wait blocks until jobID reaches a terminal state and returns it.
//
// NoJob returns StateUnknown immediately without querying. When ctx is
// cancelled or Timeout elapses, Wait returns the last observed state and a
// *WaitError wrapping the context error.
func (p *Poller) Wait(ctx context.Context, jobID int) (JobState, error) {
	if jobID == NoJob {
		return StateUnknown, nil
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	log := p.log().With(zap.Int("job_id", jobID))
	log.Info("waiting for job")

	b := p.newBackOff()
	last := StateUnknown
	for {
		state, err := p.Querier.QueryState(ctx, jobID)

		var delay time.Duration
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return last, NewWaitError(jobID, last, ctxErr)
			}
			delay = b.NextBackOff()
			log.Warn("accounting query failed, retrying", zap.Error(err), zap.Duration("retry_in", delay))
		} else {
			if p.OnState != nil {
				p.OnState(jobID, state)
			}
			if state.IsTerminal() {
				log.Info("job finished", zap.String("state", state.String()))
				return state, nil
			}
			if state != last {
				log.Debug("job state", zap.String("state", state.String()))
			}
			last = state
			b.Reset()
			delay = p.interval()
		}

		if err := sleepContext(ctx, delay); err != nil {
			return last, NewWaitError(jobID, last, err)
		}
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
