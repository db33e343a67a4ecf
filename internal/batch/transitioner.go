// Package batch implements the chunked scan-and-mutate loop behind the ticket automation tasks.
//
// A run counts the records matching its source, then pages through them in fixed-size chunks.
// Records that are mutated successfully drop out of the source's filter and vanish from later
// pages on their own. Records that are capped or fail keep matching, so the loop advances a skip
// offset past each of them; otherwise the same page would be fetched forever.
package batch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrGone is returned by Mutate when the record no longer matches the source's filter, for
// example because it was edited concurrently. The record has already left later pages, so the
// skip offset is not advanced for it.
var ErrGone = errors.New("record no longer matches")

// Source pages through the records a job should process. Implementations bind a fixed filter
// and a deterministic sort.
type Source[T any] interface {
	Count(ctx context.Context) (int, error)
	Fetch(ctx context.Context, skip, limit int) ([]T, error)
}

// Limiter caps how many records of one group a single run may mutate.
type Limiter interface {
	Allow(group string) bool
	Record(group string)
}

// Job describes one run of the transitioner.
type Job[T any] struct {
	Name      string
	Source    Source[T]
	ChunkSize int
	Mutate    func(ctx context.Context, record T) error

	// ID identifies a record in logs.
	ID func(T) string

	// Group and Limiter are optional and must be set together.
	Group   func(T) string
	Limiter Limiter

	// Reporter receives progress after every chunk. Nil disables reporting.
	Reporter Reporter
}

// Result summarizes a finished run.
type Result struct {
	Total        int
	Processed    int
	Transitioned int
	Capped       int
	Failed       int
	Gone         int
	Chunks       int
}

func (j Job[T]) validate() error {
	switch {
	case j.Source == nil:
		return errors.New("source is required")
	case j.Mutate == nil:
		return errors.New("mutate is required")
	case j.ChunkSize <= 0:
		return fmt.Errorf("chunk size must be positive, got %d", j.ChunkSize)
	case (j.Limiter == nil) != (j.Group == nil):
		return errors.New("group and limiter must be set together")
	}
	return nil
}

// Run executes job to completion. Count and Fetch failures abort the run; mutation failures are
// logged and the record is skipped until the next run. A record reported as ErrGone is counted
// and dropped without moving the offset.
func Run[T any](ctx context.Context, logger *zap.Logger, job Job[T]) (Result, error) {
	var res Result
	if err := job.validate(); err != nil {
		return res, fmt.Errorf("batch %s: %w", job.Name, err)
	}
	log := logger.With(zap.String("task", job.Name))

	total, err := job.Source.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("count %s: %w", job.Name, err)
	}
	res.Total = total

	skip := 0
	for res.Processed < total {
		chunk, err := job.Source.Fetch(ctx, skip, job.ChunkSize)
		if err != nil {
			return res, fmt.Errorf("fetch %s at offset %d: %w", job.Name, skip, err)
		}
		if len(chunk) == 0 {
			log.Info("no more records before expected total",
				zap.Int("total", total), zap.Int("processed", res.Processed))
			break
		}
		res.Chunks++

		for _, record := range chunk {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			var group string
			if job.Limiter != nil {
				group = job.Group(record)
				if !job.Limiter.Allow(group) {
					res.Capped++
					skip++
					continue
				}
			}

			err := job.Mutate(ctx, record)
			if errors.Is(err, ErrGone) {
				log.Info("record changed before transition",
					zap.String("record_id", job.recordID(record)), zap.Error(err))
				res.Gone++
				continue
			}
			if err != nil {
				log.Error("failed to transition record",
					zap.String("record_id", job.recordID(record)), zap.Error(err))
				res.Failed++
				skip++
				continue
			}

			res.Transitioned++
			if job.Limiter != nil {
				job.Limiter.Record(group)
			}
		}

		res.Processed += len(chunk)
		if job.Reporter != nil {
			job.Reporter.Report(progressOf(job.Name, res))
		}
	}

	log.Info("batch finished",
		zap.Int("total", res.Total),
		zap.Int("processed", res.Processed),
		zap.Int("transitioned", res.Transitioned),
		zap.Int("capped", res.Capped),
		zap.Int("failed", res.Failed),
		zap.Int("gone", res.Gone))
	return res, nil
}

func (j Job[T]) recordID(record T) string {
	if j.ID == nil {
		return ""
	}
	return j.ID(record)
}
