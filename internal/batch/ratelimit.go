package batch

import "sync"

// OrganizationRateLimiter counts mutations per organization within one run.
type OrganizationRateLimiter struct {
	mu     sync.Mutex
	limit  int
	counts map[string]int
}

// NewOrganizationRateLimiter creates a limiter allowing limit mutations per organization.
func NewOrganizationRateLimiter(limit int) *OrganizationRateLimiter {
	return &OrganizationRateLimiter{
		limit:  limit,
		counts: make(map[string]int),
	}
}

// Allow reports whether organizationID is still below the limit.
func (l *OrganizationRateLimiter) Allow(organizationID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[organizationID] < l.limit
}

// Record counts one successful mutation for organizationID.
func (l *OrganizationRateLimiter) Record(organizationID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[organizationID]++
}

// Count returns the mutations recorded for organizationID.
func (l *OrganizationRateLimiter) Count(organizationID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[organizationID]
}

// Limit returns the per-organization cap.
func (l *OrganizationRateLimiter) Limit() int {
	return l.limit
}
