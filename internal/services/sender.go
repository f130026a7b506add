package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
	"wallet/internal/config"
	"wallet/internal/events"
	"wallet/internal/models"
	"wallet/internal/notify"
	"wallet/internal/poller"
)

// Errors returned by the sender.
var (
	// ErrSendInProgress is returned while a previous send has not resolved.
	ErrSendInProgress = errors.New("send already in progress")

	ErrNoAccount  = errors.New("no default account configured")
	ErrNoDelegate = errors.New("no delegate node configured")
)

type NodeClient interface {
	Submit(ctx context.Context, node models.Node, tx models.Transaction) (string, error)
	GetStatus(ctx context.Context, node models.Node, id string) (*models.StatusResponse, error)
}

type StatusPoller interface {
	PollWith(ctx context.Context, id string, limits poller.Limits, status poller.StatusFunc) (poller.Outcome, error)
}

type ConfigSource interface {
	Current() *config.Config
}

type Navigator interface {
	GoBack()
}

type EventEmitter interface {
	Emit(e events.Event)
}

// SenderDeps are the collaborators of a Sender.
type SenderDeps struct {
	Config    ConfigSource
	Builder   *Builder
	Client    NodeClient
	Poller    StatusPoller
	Notifier  notify.Notifier
	Navigator Navigator
	Events    EventEmitter
}

// Result is the end of one send.
type Result struct {
	Transaction models.Transaction
	Outcome     poller.Outcome
	Err         error
}

// Sender runs the send tokens flow. At most one send is in flight; further
// requests are dropped, not queued.
type Sender struct {
	deps    SenderDeps
	logger  *slog.Logger
	sending atomic.Bool
}

func NewSender(deps SenderDeps, logger *slog.Logger) *Sender {
	return &Sender{
		deps:   deps,
		logger: logger,
	}
}

// Sending reports whether a send is in flight.
func (s *Sender) Sending() bool {
	return s.sending.Load()
}

// SendAsync starts sending value tokens to the recipient and returns a channel
// receiving the result. ctx bounds the whole flow including polling.
func (s *Sender) SendAsync(ctx context.Context, to string, value uint64) (<-chan Result, error) {
	if !s.sending.CompareAndSwap(false, true) {
		s.logger.Warn("send dropped, previous send in progress", "to", to, "value", value)
		return nil, ErrSendInProgress
	}

	cfg := s.deps.Config.Current()
	done := make(chan Result, 1)

	go func() {
		var res Result
		defer func() {
			s.sending.Store(false)
			done <- res
			close(done)
		}()
		res = s.send(ctx, cfg, to, value)
	}()

	return done, nil
}

// Send runs the flow and blocks until it resolves.
func (s *Sender) Send(ctx context.Context, to string, value uint64) (poller.Outcome, error) {
	done, err := s.SendAsync(ctx, to, value)
	if err != nil {
		return poller.Outcome{}, err
	}
	res := <-done
	return res.Outcome, res.Err
}

func (s *Sender) send(ctx context.Context, cfg *config.Config, to string, value uint64) Result {
	account := cfg.DefaultAccount
	if account.Address == "" || account.PrivateKey == "" {
		return s.fail(ctx, cfg, Result{}, ErrNoAccount)
	}
	if len(cfg.Delegates) == 0 {
		return s.fail(ctx, cfg, Result{}, ErrNoDelegate)
	}
	node := cfg.Delegates[0]
	if node.Endpoint.Port == 0 && cfg.Node.Port != 0 {
		node.Endpoint.Port = cfg.Node.Port
	}

	s.logger.Info("send started",
		"from", account.Address,
		"to", to,
		"value", value,
		"node", node.Address,
	)

	tx, err := s.deps.Builder.Build(account, to, value)
	if err != nil {
		return s.fail(ctx, cfg, Result{}, err)
	}
	res := Result{Transaction: tx}

	submitCtx, cancel := withTimeout(ctx, cfg.Node.Timeout)
	id, err := s.deps.Client.Submit(submitCtx, node, tx)
	cancel()
	if err != nil {
		return s.fail(ctx, cfg, res, fmt.Errorf("submit transaction: %w", err))
	}

	limits := poller.Limits{Delay: cfg.Poll.Delay, MaxAttempts: cfg.Poll.MaxAttempts}
	outcome, err := s.deps.Poller.PollWith(ctx, id, limits, func(ctx context.Context, id string) (*models.StatusResponse, error) {
		ctx, cancel := withTimeout(ctx, cfg.Node.Timeout)
		defer cancel()
		return s.deps.Client.GetStatus(ctx, node, id)
	})
	res.Outcome = outcome
	if err != nil {
		return s.fail(ctx, cfg, res, fmt.Errorf("poll transaction %s: %w", id, err))
	}

	s.deps.Notifier.Notify(outcome.Message(), cfg.Toast.Duration, cfg.Toast.Position)

	if !outcome.OK() {
		s.logger.Warn("transaction rejected", "id", id, "status", outcome.Status)
		return res
	}

	s.deps.Navigator.GoBack()
	s.deps.Events.Emit(events.Event{Type: events.Refresh})

	s.logger.Info("send completed", "id", id, "to", to, "value", value)
	return res
}

// fail reports err to the user unless the owner of ctx has gone away.
func (s *Sender) fail(ctx context.Context, cfg *config.Config, res Result, err error) Result {
	res.Err = err
	if ctx.Err() != nil {
		s.logger.Info("send cancelled", "error", err)
		return res
	}

	s.logger.Error("send failed", "error", err)
	s.deps.Notifier.Notify(err.Error(), cfg.Toast.Duration, cfg.Toast.Position)
	return res
}

// withTimeout bounds one node request; zero leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
