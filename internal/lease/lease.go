// Package lease implements the lease client of spec §4.9: request a
// lease against a selector, poll/watch it until Ready=True, then release
// it (idempotently) on completion.
package lease

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
	"github.com/jumpstarter-dev/jumpstarter-go/internal/wire"
)

// Client requests and manages leases against a controller.
type Client struct {
	controller wire.ControllerClient
	breaker    *gobreaker.CircuitBreaker
}

// Options configures Client.
type Options struct {
	// BreakerName labels the circuit breaker's metrics/logs.
	BreakerName string
	// MaxRequests is the number of calls allowed through while the
	// breaker is half-open.
	MaxRequests uint32
	// OpenTimeout is how long the breaker stays open before probing
	// again.
	OpenTimeout time.Duration
}

// NewClient wraps a controller stub with a circuit breaker around its
// RequestLease RPC (used by Request; Release and AwaitReady call the
// controller directly), per the DOMAIN STACK
// wiring: a controller outage should fail fast for new lease requests
// rather than pile up retries against a downed service.
func NewClient(controller wire.ControllerClient, opts Options) *Client {
	if opts.BreakerName == "" {
		opts.BreakerName = "lease-controller"
	}
	if opts.MaxRequests == 0 {
		opts.MaxRequests = 1
	}
	if opts.OpenTimeout == 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	return &Client{
		controller: controller,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        opts.BreakerName,
			MaxRequests: opts.MaxRequests,
			Timeout:     opts.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Request submits {selector, duration} to the controller (spec §4.9) and
// returns the controller's Lease record, guarded by the circuit breaker.
func (c *Client) Request(ctx context.Context, clientRef string, selector map[string]string, duration time.Duration) (*wire.Lease, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.controller.RequestLease(ctx, &wire.RequestLeaseRequest{
			ClientRef: clientRef,
			Selector:  selector,
			Duration:  int64(duration.Seconds()),
		})
	})
	if err != nil {
		return nil, breakerError(err)
	}
	return result.(*wire.Lease), nil
}

// Release releases name. Idempotent per spec §4.9: a second Release call
// for an already-released lease must not be treated as an error by
// callers, so a NotFound from the controller is swallowed here.
func (c *Client) Release(ctx context.Context, name string) error {
	_, err := c.controller.ReleaseLease(ctx, &wire.ReleaseLeaseRequest{Name: name})
	if err != nil && jerrors.KindOf(err) == jerrors.NotFound {
		return nil
	}
	return err
}

// AwaitReady polls (or watches, if the controller stub's WatchLease
// succeeds) name until a Ready=True condition appears, backing off
// between poll attempts. It returns the lease record as soon as it is
// ready.
func (c *Client) AwaitReady(ctx context.Context, name string) (*wire.Lease, error) {
	if watch, err := c.controller.WatchLease(ctx, &wire.WatchLeaseRequest{Name: name}); err == nil {
		for {
			l, err := watch.Recv()
			if err != nil {
				break
			}
			if leaseReady(l) {
				return l, nil
			}
		}
	}

	op := func() (*wire.Lease, error) {
		leases, err := c.controller.ListLeases(ctx, &wire.ListLeasesRequest{})
		if err != nil {
			return nil, err
		}
		for _, l := range leases.Leases {
			if l.Name == name {
				if leaseReady(l) {
					return l, nil
				}
				return nil, backoff.RetryAfter(1)
			}
		}
		return nil, jerrors.Newf(jerrors.NotFound, "lease %s not found while awaiting readiness", name)
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(5*time.Minute),
	)
}

func leaseReady(l *wire.Lease) bool {
	for _, c := range l.Conditions {
		if c.Type == "Ready" && c.Status == "True" {
			return true
		}
	}
	return false
}

func breakerError(err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return jerrors.Wrap(jerrors.Unavailable, "controller circuit breaker open", err)
	}
	return err
}
