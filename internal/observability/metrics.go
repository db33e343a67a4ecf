package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/ticket-automation/internal/batch"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	taskRuns     map[string]int64
	transitions  map[string]int64
	progress     map[string]batch.Progress
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		taskRuns:     make(map[string]int64),
		transitions:  make(map[string]int64),
		progress:     make(map[string]batch.Progress),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// ObserveRun counts a finished task run by outcome and adds its transitions.
func (m *Metrics) ObserveRun(task string, res batch.Result, err error, _ time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taskRuns[task+"|"+outcome]++
	m.transitions[task] += int64(res.Transitioned)
}

// Report keeps the latest progress snapshot per task.
func (m *Metrics) Report(p batch.Progress) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress[p.Task] = p
}

// Snapshot is a copy of every counter.
type Snapshot struct {
	Requests    map[string]int64          `json:"requests"`
	Errors      map[string]int64          `json:"errors"`
	TaskRuns    map[string]int64          `json:"task_runs"`
	Transitions map[string]int64          `json:"transitions"`
	Progress    map[string]batch.Progress `json:"progress"`
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests:    copyCounts(m.requestCount),
		Errors:      copyCounts(m.errorCount),
		TaskRuns:    copyCounts(m.taskRuns),
		Transitions: copyCounts(m.transitions),
		Progress:    copyProgress(m.progress),
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func copyProgress(src map[string]batch.Progress) map[string]batch.Progress {
	out := make(map[string]batch.Progress, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
