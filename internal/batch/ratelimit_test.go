package batch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrganizationRateLimiter(t *testing.T) {
	l := NewOrganizationRateLimiter(2)

	assert.True(t, l.Allow("org-1"))
	l.Record("org-1")
	assert.True(t, l.Allow("org-1"))
	l.Record("org-1")
	assert.False(t, l.Allow("org-1"))

	assert.True(t, l.Allow("org-2"), "limits are tracked per organization")
	assert.Equal(t, 2, l.Count("org-1"))
	assert.Equal(t, 0, l.Count("org-2"))
	assert.Equal(t, 2, l.Limit())
}

func TestOrganizationRateLimiterZeroLimitAllowsNothing(t *testing.T) {
	l := NewOrganizationRateLimiter(0)
	assert.False(t, l.Allow("org-1"))
}

func TestOrganizationRateLimiterConcurrentRecord(t *testing.T) {
	l := NewOrganizationRateLimiter(1000)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record("org-1")
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, l.Count("org-1"))
}

func TestReporters(t *testing.T) {
	var a, b int
	rs := Reporters{
		ReporterFunc(func(Progress) { a++ }),
		nil,
		ReporterFunc(func(Progress) { b++ }),
	}
	rs.Report(Progress{Task: "x"})
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}
