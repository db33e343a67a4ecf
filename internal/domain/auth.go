package domain

import "time"

// SubjectType differentiates kinds of authenticated callers.
type SubjectType string

// SubjectTypeOperator is a human running or inspecting automation tasks.
const SubjectTypeOperator SubjectType = "OPERATOR"

// Token represents issued access token metadata.
type Token struct {
	SubjectID string
	Subject   SubjectType
	ExpiresAt time.Time
	IssuedAt  time.Time
}
