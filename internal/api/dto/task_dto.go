package dto

import (
	"time"

	"github.com/spec-kit/ticket-automation/internal/batch"
)

// TaskRunResponse is returned by a manual trigger.
type TaskRunResponse struct {
	Task         string `json:"task"`
	Total        int    `json:"total"`
	Processed    int    `json:"processed"`
	Transitioned int    `json:"transitioned"`
	Capped       int    `json:"capped"`
	Failed       int    `json:"failed"`
	Gone         int    `json:"gone"`
	ElapsedMS    int64  `json:"elapsed_ms"`
}

// NewTaskRunResponse maps a batch result.
func NewTaskRunResponse(task string, res batch.Result, elapsed time.Duration) TaskRunResponse {
	return TaskRunResponse{
		Task:         task,
		Total:        res.Total,
		Processed:    res.Processed,
		Transitioned: res.Transitioned,
		Capped:       res.Capped,
		Failed:       res.Failed,
		Gone:         res.Gone,
		ElapsedMS:    elapsed.Milliseconds(),
	}
}
