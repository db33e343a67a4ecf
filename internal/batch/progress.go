package batch

import "go.uber.org/zap"

// Progress is a snapshot of a running job.
type Progress struct {
	Task         string
	Total        int
	Processed    int
	Transitioned int
	Capped       int
	Failed       int
}

// Reporter receives progress snapshots.
type Reporter interface {
	Report(Progress)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Progress)

func (f ReporterFunc) Report(p Progress) { f(p) }

// Reporters fans a snapshot out to several reporters.
type Reporters []Reporter

func (rs Reporters) Report(p Progress) {
	for _, r := range rs {
		if r != nil {
			r.Report(p)
		}
	}
}

// LogReporter writes each snapshot at debug level.
func LogReporter(logger *zap.Logger) Reporter {
	return ReporterFunc(func(p Progress) {
		logger.Debug("batch progress",
			zap.String("task", p.Task),
			zap.Int("total", p.Total),
			zap.Int("processed", p.Processed),
			zap.Int("transitioned", p.Transitioned))
	})
}

func progressOf(task string, res Result) Progress {
	return Progress{
		Task:         task,
		Total:        res.Total,
		Processed:    res.Processed,
		Transitioned: res.Transitioned,
		Capped:       res.Capped,
		Failed:       res.Failed,
	}
}
