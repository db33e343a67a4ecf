package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type item struct {
	id      string
	org     string
	done    bool
	failing bool
	edited  bool
	mutated int
}

// memSource only returns items that are not done, like a store filter on status.
type memSource struct {
	items      []*item
	countExtra int
	countErr   error
	fetchErr   error
	fetches    []int
}

func (s *memSource) pending() []*item {
	var out []*item
	for _, it := range s.items {
		if !it.done {
			out = append(out, it)
		}
	}
	return out
}

func (s *memSource) Count(context.Context) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return len(s.pending()) + s.countExtra, nil
}

func (s *memSource) Fetch(_ context.Context, skip, limit int) ([]*item, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	s.fetches = append(s.fetches, skip)
	pending := s.pending()
	if skip >= len(pending) {
		return nil, nil
	}
	end := skip + limit
	if end > len(pending) {
		end = len(pending)
	}
	return pending[skip:end], nil
}

func markDone(_ context.Context, it *item) error {
	it.mutated++
	if it.edited {
		// someone else moved the record out of the filter first
		it.done = true
		return fmt.Errorf("item %s: %w", it.id, ErrGone)
	}
	if it.failing {
		return errors.New("store rejected update")
	}
	it.done = true
	return nil
}

func newJob(src *memSource, chunk int) Job[*item] {
	return Job[*item]{
		Name:      "test",
		Source:    src,
		ChunkSize: chunk,
		ID:        func(it *item) string { return it.id },
		Mutate:    markDone,
	}
}

func items(ids ...string) []*item {
	out := make([]*item, 0, len(ids))
	for _, id := range ids {
		out = append(out, &item{id: id, org: id[:1]})
	}
	return out
}

func TestRunTransitionsAllAcrossChunks(t *testing.T) {
	src := &memSource{items: items("a1", "a2", "a3", "b1", "b2")}

	res, err := Run(context.Background(), zap.NewNop(), newJob(src, 2))
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 5, res.Processed)
	assert.Equal(t, 5, res.Transitioned)
	assert.Equal(t, 3, res.Chunks)
	assert.Empty(t, src.pending())
	// transitioned records leave the filter, so every page starts at offset zero
	assert.Equal(t, []int{0, 0, 0}, src.fetches)
}

func TestRunCapsPerGroup(t *testing.T) {
	for _, chunk := range []int{1, 2, 50} {
		src := &memSource{items: items("a1", "a2", "b1", "b2")}
		limiter := NewOrganizationRateLimiter(1)
		job := newJob(src, chunk)
		job.Group = func(it *item) string { return it.org }
		job.Limiter = limiter

		res, err := Run(context.Background(), zap.NewNop(), job)
		require.NoError(t, err)

		assert.Equal(t, 2, res.Transitioned, "chunk %d", chunk)
		assert.Equal(t, 2, res.Capped, "chunk %d", chunk)
		assert.Equal(t, 1, limiter.Count("a"))
		assert.Equal(t, 1, limiter.Count("b"))
		assert.True(t, src.items[0].done)
		assert.False(t, src.items[1].done)
		assert.True(t, src.items[2].done)
		assert.False(t, src.items[3].done)
	}
}

func TestRunSkipsFailedRecordsWithoutRetry(t *testing.T) {
	src := &memSource{items: items("a1", "a2", "a3")}
	src.items[0].failing = true

	res, err := Run(context.Background(), zap.NewNop(), newJob(src, 1))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Transitioned)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, src.items[0].mutated)
	assert.Equal(t, 1, src.items[1].mutated)
	assert.Equal(t, 1, src.items[2].mutated)
	assert.Equal(t, []int{0, 1, 1}, src.fetches)
}

func TestRunFailedRecordsDoNotCountAgainstCap(t *testing.T) {
	src := &memSource{items: items("a1", "a2")}
	src.items[0].failing = true
	limiter := NewOrganizationRateLimiter(1)
	job := newJob(src, 10)
	job.Group = func(it *item) string { return it.org }
	job.Limiter = limiter

	res, err := Run(context.Background(), zap.NewNop(), job)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Transitioned)
	assert.True(t, src.items[1].done)
}

func TestRunConcurrentlyEditedRecordDoesNotShiftOffset(t *testing.T) {
	for _, chunk := range []int{1, 2, 50} {
		src := &memSource{items: items("a1", "a2", "a3")}
		src.items[0].edited = true
		limiter := NewOrganizationRateLimiter(100)
		job := newJob(src, chunk)
		job.Group = func(it *item) string { return it.org }
		job.Limiter = limiter

		res, err := Run(context.Background(), zap.NewNop(), job)
		require.NoError(t, err)

		assert.Equal(t, 1, res.Gone, "chunk %d", chunk)
		assert.Equal(t, 0, res.Failed, "chunk %d", chunk)
		assert.Equal(t, 2, res.Transitioned, "chunk %d", chunk)
		assert.Equal(t, 2, limiter.Count("a"), "gone records do not count against the cap")
		assert.Empty(t, src.pending(), "chunk %d", chunk)
		for _, skip := range src.fetches {
			assert.Equal(t, 0, skip, "chunk %d", chunk)
		}
	}
}

func TestRunStopsOnEmptyPage(t *testing.T) {
	src := &memSource{items: items("a1"), countExtra: 10}

	res, err := Run(context.Background(), zap.NewNop(), newJob(src, 5))
	require.NoError(t, err)

	assert.Equal(t, 11, res.Total)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Transitioned)
	assert.Len(t, src.fetches, 2)
}

func TestRunNothingToDo(t *testing.T) {
	src := &memSource{}

	res, err := Run(context.Background(), zap.NewNop(), newJob(src, 5))
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, src.fetches)
}

func TestRunIsIdempotent(t *testing.T) {
	src := &memSource{items: items("a1", "a2", "b1")}

	_, err := Run(context.Background(), zap.NewNop(), newJob(src, 2))
	require.NoError(t, err)

	res, err := Run(context.Background(), zap.NewNop(), newJob(src, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Transitioned)
	for _, it := range src.items {
		assert.Equal(t, 1, it.mutated)
	}
}

func TestRunStoreErrors(t *testing.T) {
	t.Run("count", func(t *testing.T) {
		src := &memSource{countErr: errors.New("connection refused")}
		_, err := Run(context.Background(), zap.NewNop(), newJob(src, 5))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "count test")
	})

	t.Run("fetch", func(t *testing.T) {
		src := &memSource{items: items("a1"), fetchErr: errors.New("timeout")}
		_, err := Run(context.Background(), zap.NewNop(), newJob(src, 5))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fetch test at offset 0")
	})
}

func TestRunReportsProgressPerChunk(t *testing.T) {
	src := &memSource{items: items("a1", "a2", "a3")}
	var seen []Progress
	job := newJob(src, 2)
	job.Reporter = ReporterFunc(func(p Progress) { seen = append(seen, p) })

	_, err := Run(context.Background(), zap.NewNop(), job)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, Progress{Task: "test", Total: 3, Processed: 2, Transitioned: 2}, seen[0])
	assert.Equal(t, Progress{Task: "test", Total: 3, Processed: 3, Transitioned: 3}, seen[1])
}

func TestRunStopsWhenContextCanceled(t *testing.T) {
	src := &memSource{items: items("a1", "a2")}
	ctx, cancel := context.WithCancel(context.Background())
	job := newJob(src, 5)
	job.Mutate = func(ctx context.Context, it *item) error {
		cancel()
		return markDone(ctx, it)
	}

	res, err := Run(ctx, zap.NewNop(), job)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Transitioned)
	assert.False(t, src.items[1].done)
}

func TestRunValidatesJob(t *testing.T) {
	src := &memSource{}

	job := newJob(src, 0)
	_, err := Run(context.Background(), zap.NewNop(), job)
	assert.ErrorContains(t, err, "chunk size must be positive")

	job = newJob(src, 5)
	job.Limiter = NewOrganizationRateLimiter(1)
	_, err = Run(context.Background(), zap.NewNop(), job)
	assert.ErrorContains(t, err, "group and limiter must be set together")

	job = newJob(src, 5)
	job.Mutate = nil
	_, err = Run(context.Background(), zap.NewNop(), job)
	assert.ErrorContains(t, err, "mutate is required")
}
