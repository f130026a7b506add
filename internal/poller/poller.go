// Package poller tracks a submitted transaction until the node reports a
// terminal status.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"wallet/internal/models"
)

const DefaultDelay = 500 * time.Millisecond

var ErrAttemptsExceeded = errors.New("transaction still pending after max attempts")

type State int

const (
	StateWaiting State = iota
	StatePending
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of polling.
type Outcome struct {
	ID       string
	Status   string
	Attempts int
}

// OK reports whether the node accepted the transaction.
func (o Outcome) OK() bool {
	return o.Status == models.StatusOk
}

// Message is the text shown to the user for the outcome.
func (o Outcome) Message() string {
	if o.OK() {
		return "Tokens Sent"
	}
	return o.Status
}

// StatusFunc queries the status of the transaction with the given id.
type StatusFunc func(ctx context.Context, id string) (*models.StatusResponse, error)

// Clock lets tests control the delay between attempts.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

type Config struct {
	Delay time.Duration
	// MaxAttempts bounds the number of status queries; 0 means unbounded.
	MaxAttempts int
	Clock       Clock
}

type Poller struct {
	delay       time.Duration
	maxAttempts int
	clock       Clock
	logger      *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Poller {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	return &Poller{
		delay:       cfg.Delay,
		maxAttempts: cfg.MaxAttempts,
		clock:       cfg.Clock,
		logger:      logger,
	}
}

// Limits bound one polling run.
type Limits struct {
	Delay time.Duration
	// MaxAttempts bounds the number of status queries; 0 means unbounded.
	MaxAttempts int
}

// Poll waits the configured delay before every status query and returns once
// the status is anything but Pending. Queries are strictly sequential.
func (p *Poller) Poll(ctx context.Context, id string, status StatusFunc) (Outcome, error) {
	return p.PollWith(ctx, id, Limits{Delay: p.delay, MaxAttempts: p.maxAttempts}, status)
}

// PollWith is Poll with limits chosen by the caller. A non-positive delay
// falls back to the poller's delay.
func (p *Poller) PollWith(ctx context.Context, id string, limits Limits, status StatusFunc) (Outcome, error) {
	delay := limits.Delay
	if delay <= 0 {
		delay = p.delay
	}
	state := StateWaiting

	for attempt := 1; ; attempt++ {
		if limits.MaxAttempts > 0 && attempt > limits.MaxAttempts {
			p.logger.Warn("polling abandoned", "id", id, "attempts", limits.MaxAttempts)
			return Outcome{ID: id, Status: models.StatusPending, Attempts: limits.MaxAttempts}, ErrAttemptsExceeded
		}

		if err := ctx.Err(); err != nil {
			return Outcome{ID: id, Attempts: attempt - 1}, err
		}

		select {
		case <-ctx.Done():
			return Outcome{ID: id, Attempts: attempt - 1}, ctx.Err()
		case <-p.clock.After(delay):
		}

		resp, err := status(ctx, id)
		if err != nil {
			return Outcome{ID: id, Attempts: attempt}, fmt.Errorf("status query %d: %w", attempt, err)
		}

		if resp.Status == models.StatusPending {
			if state != StatePending {
				p.logger.Debug("poll state", "id", id, "from", state.String(), "to", StatePending.String())
				state = StatePending
			}
			continue
		}

		p.logger.Debug("poll state", "id", id, "from", state.String(), "to", StateResolved.String())
		p.logger.Info("transaction resolved", "id", id, "status", resp.Status, "attempts", attempt)
		return Outcome{ID: id, Status: resp.Status, Attempts: attempt}, nil
	}
}
