package domain

import "time"

// TicketVisibilityType controls how broadly a role may read tickets.
type TicketVisibilityType string

const (
	VisibilityOrganization              TicketVisibilityType = "ORGANIZATION"
	VisibilityProperty                  TicketVisibilityType = "PROPERTY"
	VisibilityPropertyAndSpecialization TicketVisibilityType = "PROPERTY_AND_SPECIALIZATION"

	// VisibilityAssigned roles only see tickets where the user is executor or assignee.
	VisibilityAssigned TicketVisibilityType = "ASSIGNED"
)

// OrganizationEmployeeRole models a role granted to employees of one organization.
type OrganizationEmployeeRole struct {
	ID                   string
	OrganizationID       string
	Name                 string
	TicketVisibilityType TicketVisibilityType
	CanReadTickets       bool
}

// OrganizationEmployee links a user to an organization.
type OrganizationEmployee struct {
	ID                    string
	OrganizationID        string
	UserID                string
	RoleID                *string
	IsBlocked             bool
	IsRejected            bool
	IsAccepted            bool
	HasAllSpecializations bool
	CreatedAt             time.Time
	DeletedAt             *time.Time
}

// Active reports whether the employee may receive ticket notifications.
func (e OrganizationEmployee) Active() bool {
	return !e.IsBlocked && !e.IsRejected && e.DeletedAt == nil
}

// OrganizationEmployeeSpecialization links an employee to a ticket category.
type OrganizationEmployeeSpecialization struct {
	ID               string
	EmployeeID       string
	SpecializationID string
	DeletedAt        *time.Time
}
