package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-automation/internal/api/dto"
	"github.com/spec-kit/ticket-automation/internal/auth"
	"github.com/spec-kit/ticket-automation/internal/batch"
	"github.com/spec-kit/ticket-automation/internal/scheduler"
)

// TaskRunner lists and triggers tasks.
type TaskRunner interface {
	Tasks() []scheduler.TaskInfo
	RunNow(ctx context.Context, name string) (batch.Result, error)
}

// TasksHandler exposes the automation tasks to operators.
type TasksHandler struct {
	runner TaskRunner
}

// NewTasksHandler constructs handler.
func NewTasksHandler(runner TaskRunner) *TasksHandler {
	return &TasksHandler{runner: runner}
}

// List GET /tasks.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.runner.Tasks()})
}

// Run POST /tasks/:name/run. The run outlives the request timeout; it is bounded by its lease.
func (h *TasksHandler) Run(c *fiber.Ctx) error {
	name := c.Params("name")
	ctx := context.WithoutCancel(c.UserContext())

	started := time.Now()
	res, err := h.runner.RunNow(ctx, name)
	if err != nil {
		return err
	}

	resp := dto.NewTaskRunResponse(name, res, time.Since(started))
	if principal, ok := auth.PrincipalFromContext(c); ok {
		c.Set("X-Triggered-By", principal.Name)
	}
	return c.JSON(fiber.Map{"data": resp})
}
