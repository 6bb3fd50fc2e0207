// internal/media/resilient.go
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/vidshare/vidshare-api-go/internal/metrics"
)

// ResilientOptions tunes the retry and circuit breaker policy around a Host.
type ResilientOptions struct {
	Name             string        // Breaker name, used as a metric label
	Timeout          time.Duration // Per attempt
	Retries          int           // Extra attempts after the first
	InitialInterval  time.Duration // First backoff delay
	FailureThreshold uint32        // Consecutive failures that open the circuit
	OpenTimeout      time.Duration // How long the circuit stays open
	Logger           *slog.Logger
}

func (o *ResilientOptions) setDefaults() {
	if o.Name == "" {
		o.Name = "media-host"
	}
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Minute
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = 500 * time.Millisecond
	}
	if o.FailureThreshold == 0 {
		o.FailureThreshold = 5
	}
	if o.OpenTimeout <= 0 {
		o.OpenTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Resilient wraps a Host with per-attempt timeouts, bounded exponential
// retries and a circuit breaker. Errors caused by the input itself are
// never retried and do not count against the breaker.
type Resilient struct {
	host    Host
	opts    ResilientOptions
	breaker *gobreaker.CircuitBreaker[any]
	metrics *metrics.Metrics
}

// NewResilient wraps host.
func NewResilient(host Host, opts ResilientOptions) *Resilient {
	opts.setDefaults()
	m := metrics.NewMetrics()
	m.MediaCircuitState.WithLabelValues(opts.Name).Set(0)

	r := &Resilient{host: host, opts: opts, metrics: m}
	r.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			opts.Logger.Warn("Media host circuit breaker changed state",
				"breaker", name, "from", from.String(), "to", to.String())
			m.MediaCircuitState.WithLabelValues(name).Set(stateValue(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isInputError(err) || errors.Is(err, context.Canceled)
		},
	})
	return r
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}

// isInputError reports errors that another attempt cannot fix.
func isInputError(err error) bool {
	return errors.Is(err, ErrUnsupportedType) || errors.Is(err, ErrMissingFile)
}

// Upload uploads through the wrapped host.
func (r *Resilient) Upload(ctx context.Context, localPath string) (*Asset, error) {
	v, err := r.do(ctx, "upload", func(ctx context.Context) (any, error) {
		return r.host.Upload(ctx, localPath)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Asset), nil
}

// Delete deletes through the wrapped host.
func (r *Resilient) Delete(ctx context.Context, publicID string) (bool, error) {
	v, err := r.do(ctx, "delete", func(ctx context.Context) (any, error) {
		return r.host.Delete(ctx, publicID)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// State returns the breaker state, for readiness reporting.
func (r *Resilient) State() gobreaker.State {
	return r.breaker.State()
}

func (r *Resilient) do(ctx context.Context, op string, fn func(context.Context) (any, error)) (result any, err error) {
	start := time.Now()
	defer func() {
		status := metrics.Status(err)
		r.metrics.MediaOperationTotal.WithLabelValues(op, status).Inc()
		r.metrics.MediaOperationDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	}()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.opts.InitialInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.opts.Retries)), ctx)

	attempt := func() error {
		v, err := r.breaker.Execute(func() (any, error) {
			actx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
			defer cancel()
			return fn(actx)
		})
		switch {
		case err == nil:
			result = v
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrUnavailable, err))
		case isInputError(err), errors.Is(err, ErrUnavailable), ctx.Err() != nil:
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		r.metrics.MediaRetryTotal.WithLabelValues(op).Inc()
		r.opts.Logger.Warn("Retrying media host operation", "operation", op, "wait", wait, "error", err)
	}

	if err = backoff.RetryNotify(attempt, policy, notify); err != nil {
		return nil, err
	}
	return result, nil
}
