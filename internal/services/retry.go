package services

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"

	"github.com/pokstore/backend/internal/apperrors"
	"github.com/pokstore/backend/internal/metrics"
)

// Retry defaults
const (
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = time.Second
)

// Retrier wraps store calls with a connectivity pre-check, bounded
// exponential backoff on transient failures, and translation of store
// error codes into application errors.
type Retrier struct {
	prober           Prober
	maxRetries       int
	baseDelay        time.Duration
	sleep            func(ctx context.Context, d time.Duration) error
	onSessionExpired func(ctx context.Context)
}

// NewRetrier creates a Retrier. prober may be nil to skip the pre-check.
func NewRetrier(prober Prober, maxRetries int, baseDelay time.Duration) *Retrier {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = DefaultRetryBaseDelay
	}
	return &Retrier{
		prober:     prober,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleep:      sleepContext,
	}
}

// OnSessionExpired registers the hook run when the store reports an expired
// session, before the error is returned.
func (r *Retrier) OnSessionExpired(fn func(ctx context.Context)) {
	r.onSessionExpired = fn
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn under the retry policy
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, r, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call runs fn under r's retry policy and returns its result.
func Call[T any](ctx context.Context, r *Retrier, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if r.prober != nil && !r.prober.Online(ctx) {
		metrics.StoreCallsTotal.WithLabelValues(op, "offline").Inc()
		return zero, apperrors.Localized(apperrors.CodeConnectivity, apperrors.KeyOffline)
	}

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			metrics.StoreCallsTotal.WithLabelValues(op, "success").Inc()
			return result, nil
		}

		switch {
		case isSessionExpired(err):
			metrics.StoreCallsTotal.WithLabelValues(op, "session_expired").Inc()
			log.Printf("Store: %s: session expired, signing out", op)
			if r.onSessionExpired != nil {
				r.onSessionExpired(ctx)
			}
			return zero, apperrors.Wrap(apperrors.CodeAuth, apperrors.KeySessionExpired, err)

		case isDuplicate(err):
			metrics.StoreCallsTotal.WithLabelValues(op, "conflict").Inc()
			return zero, apperrors.Wrap(apperrors.CodeConflict, apperrors.KeyDuplicate, err)

		case isTransient(err):
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			if attempt >= r.maxRetries {
				metrics.StoreCallsTotal.WithLabelValues(op, "unreachable").Inc()
				log.Printf("Store: %s: giving up after %d retries: %v", op, attempt, err)
				return zero, apperrors.Wrap(apperrors.CodeConnectivity, apperrors.KeyServerUnreachable, err)
			}
			delay := r.baseDelay << attempt
			metrics.StoreRetriesTotal.WithLabelValues(op).Inc()
			log.Printf("Store: %s failed (%v), retrying in %v (%d/%d)", op, err, delay, attempt+1, r.maxRetries)
			if serr := r.sleep(ctx, delay); serr != nil {
				return zero, serr
			}

		default:
			metrics.StoreCallsTotal.WithLabelValues(op, "error").Inc()
			return zero, err
		}
	}
}

func isSessionExpired(err error) bool {
	var se *StoreError
	if errors.As(err, &se) && se.Code == StoreCodeSessionExpired {
		return true
	}
	return strings.Contains(err.Error(), "JWT expired")
}

func isDuplicate(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == StoreCodeDuplicate
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StoreError
	if errors.As(err, &se) && se.Code == StoreCodeNetwork {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Failed to fetch") || strings.Contains(msg, "network")
}
