package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-automation/internal/batch"
	"github.com/spec-kit/ticket-automation/internal/config"
	"github.com/spec-kit/ticket-automation/internal/domain"
	"github.com/spec-kit/ticket-automation/internal/events"
	"github.com/spec-kit/ticket-automation/internal/repository"
)

// AutoReopen returns DEFERRED tickets to OPEN once their deferral has passed. Executor and
// assignee are cleared so the ticket is triaged again.
type AutoReopen struct {
	repo     repository.TicketRepository
	bus      events.Dispatcher
	cfg      config.AutoReopenConfig
	reporter batch.Reporter
	logger   *zap.Logger
	now      clock
}

// NewAutoReopen builds the task. bus and reporter may be nil.
func NewAutoReopen(repo repository.TicketRepository, bus events.Dispatcher, cfg config.AutoReopenConfig,
	reporter batch.Reporter, logger *zap.Logger) *AutoReopen {
	return &AutoReopen{
		repo:     repo,
		bus:      bus,
		cfg:      cfg,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
	}
}

func (t *AutoReopen) Name() string     { return AutoReopenName }
func (t *AutoReopen) Schedule() string { return t.cfg.Schedule }

func (t *AutoReopen) Run(ctx context.Context) (batch.Result, error) {
	now := t.now()
	query, err := repository.DeferredUntilPassed(now)
	if err != nil {
		return batch.Result{}, err
	}
	log := t.logger.With(zap.String("task", AutoReopenName))

	tr := transition{
		repo:       t.repo,
		bus:        t.bus,
		logger:     log,
		to:         domain.TicketStatusOpen,
		sender:     domain.AutomationSender(AutoReopenFingerprint),
		disconnect: true,

		deferredUntilBefore: &now,
	}
	return batch.Run(ctx, t.logger, batch.Job[domain.Ticket]{
		Name:      AutoReopenName,
		Source:    ticketSource{repo: t.repo, query: query},
		ChunkSize: t.cfg.ChunkSize,
		Mutate:    tr.apply,
		ID:        ticketID,
		Reporter:  t.reporter,
	})
}
