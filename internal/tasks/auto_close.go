package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-automation/internal/batch"
	"github.com/spec-kit/ticket-automation/internal/config"
	"github.com/spec-kit/ticket-automation/internal/domain"
	"github.com/spec-kit/ticket-automation/internal/events"
	"github.com/spec-kit/ticket-automation/internal/featureflag"
	"github.com/spec-kit/ticket-automation/internal/repository"
	apperrors "github.com/spec-kit/ticket-automation/pkg/util/errorutil"
)

// AutoClose closes tickets that have been COMPLETED for longer than the configured age,
// transitioning at most a flag-controlled number of tickets per organization in one run.
type AutoClose struct {
	repo     repository.TicketRepository
	flags    featureflag.Provider
	bus      events.Dispatcher
	cfg      config.AutoCloseConfig
	reporter batch.Reporter
	logger   *zap.Logger
	now      clock
}

// NewAutoClose builds the task. bus and reporter may be nil.
func NewAutoClose(repo repository.TicketRepository, flags featureflag.Provider, bus events.Dispatcher,
	cfg config.AutoCloseConfig, reporter batch.Reporter, logger *zap.Logger) *AutoClose {
	return &AutoClose{
		repo:     repo,
		flags:    flags,
		bus:      bus,
		cfg:      cfg,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
	}
}

func (t *AutoClose) Name() string     { return AutoCloseName }
func (t *AutoClose) Schedule() string { return t.cfg.Schedule }

// Run closes eligible tickets. A cap that does not resolve to a positive number fails the run
// before anything is fetched.
func (t *AutoClose) Run(ctx context.Context) (batch.Result, error) {
	limit, err := t.flags.Int(ctx, t.cfg.LimitFlag, "", t.cfg.DefaultLimit)
	if errors.Is(err, featureflag.ErrInvalidValue) {
		return batch.Result{}, apperrors.NewConfigurationError("organization limit must be a positive integer",
			map[string]any{"flag": t.cfg.LimitFlag, "reason": err.Error()})
	}
	if err != nil {
		return batch.Result{}, fmt.Errorf("resolve %s: %w", t.cfg.LimitFlag, err)
	}
	if limit <= 0 {
		return batch.Result{}, apperrors.NewConfigurationError("organization limit must be positive",
			map[string]any{"flag": t.cfg.LimitFlag, "value": limit})
	}

	cutoff := t.now().Add(-t.cfg.CompletedAge())
	query, err := repository.CompletedBefore(cutoff)
	if err != nil {
		return batch.Result{}, err
	}
	log := t.logger.With(zap.String("task", AutoCloseName))
	log.Info("auto-close started", zap.Int("organization_limit", limit))

	tr := transition{
		repo:   t.repo,
		bus:    t.bus,
		logger: log,
		to:     domain.TicketStatusClosed,
		sender: domain.AutomationSender(AutoCloseFingerprint),

		statusUpdatedBefore: &cutoff,
	}
	return batch.Run(ctx, t.logger, batch.Job[domain.Ticket]{
		Name:      AutoCloseName,
		Source:    ticketSource{repo: t.repo, query: query},
		ChunkSize: t.cfg.ChunkSize,
		Mutate:    tr.apply,
		ID:        ticketID,
		Group:     ticketOrganization,
		Limiter:   batch.NewOrganizationRateLimiter(limit),
		Reporter:  t.reporter,
	})
}
