package domain

import "time"

// TicketCommentType differentiates staff-only comments from resident-visible ones.
type TicketCommentType string

const (
	CommentTypeOrganization TicketCommentType = "organization"
	CommentTypeResident     TicketCommentType = "resident"
)

// TicketComment is a message in a ticket thread.
type TicketComment struct {
	ID        string
	TicketID  string
	UserID    string
	Type      TicketCommentType
	Content   string
	CreatedAt time.Time
}
