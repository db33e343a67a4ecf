// Package visibility computes which staff users may read, and are notified about, a ticket.
//
// Resolution is a pure function of pre-fetched organization data. Each tier of access is built
// as its own UserSet and the audience is their union:
//
//   - the ticket's executor and assignee, always;
//   - ORGANIZATION roles, always;
//   - PROPERTY roles, when a property scope covering the ticket covers the employee;
//   - PROPERTY_AND_SPECIALIZATION roles, as PROPERTY but also requiring a specialization match.
//
// ASSIGNED roles gain nothing beyond the executor/assignee seed.
package visibility

import (
	"github.com/spec-kit/ticket-automation/internal/domain"
)

// Input is everything resolution needs. Records belonging to other organizations are ignored.
type Input struct {
	Ticket          domain.Ticket
	Employees       []domain.OrganizationEmployee
	Roles           []domain.OrganizationEmployeeRole
	Scopes          []domain.PropertyScope
	ScopeProperties []domain.PropertyScopeProperty
	ScopeEmployees  []domain.PropertyScopeOrganizationEmployee
	Specializations []domain.OrganizationEmployeeSpecialization
}

// Options tune a single resolution.
type Options struct {
	// ExcludeUserID drops the acting user, such as a comment author, from the result.
	ExcludeUserID *string
}

// Resolve returns the audience for in.Ticket.
func Resolve(in Input, opts Options) UserSet {
	eligible := eligibleEmployees(in)
	scopes := applicableScopes(in)

	propertyTier := byTier(eligible, domain.VisibilityProperty)
	specializedTier := byTier(eligible, domain.VisibilityPropertyAndSpecialization)

	if !hasDefaultScope(scopes) {
		covered := scopeMembers(in, scopes)
		propertyTier = restrictTo(propertyTier, covered)
		specializedTier = restrictTo(specializedTier, covered)
	}

	audience := seed(in.Ticket).Union(
		organizationTier(eligible),
		usersOf(propertyTier),
		specializationMatches(in, specializedTier),
	)

	if opts.ExcludeUserID != nil {
		audience = audience.Without(*opts.ExcludeUserID)
	}
	return audience
}

type eligibleEmployee struct {
	employee domain.OrganizationEmployee
	tier     domain.TicketVisibilityType
}

func seed(t domain.Ticket) UserSet {
	var ids []string
	if t.ExecutorID != nil {
		ids = append(ids, *t.ExecutorID)
	}
	if t.AssigneeID != nil {
		ids = append(ids, *t.AssigneeID)
	}
	return NewUserSet(ids...)
}

// eligibleEmployees keeps active employees of the ticket's organization whose role, from the same
// organization, grants ticket reads.
func eligibleEmployees(in Input) []eligibleEmployee {
	org := in.Ticket.OrganizationID
	roles := make(map[string]domain.OrganizationEmployeeRole, len(in.Roles))
	for _, r := range in.Roles {
		if r.OrganizationID == org {
			roles[r.ID] = r
		}
	}

	var out []eligibleEmployee
	for _, e := range in.Employees {
		if e.OrganizationID != org || !e.Active() || e.RoleID == nil {
			continue
		}
		role, ok := roles[*e.RoleID]
		if !ok || !role.CanReadTickets {
			continue
		}
		out = append(out, eligibleEmployee{employee: e, tier: role.TicketVisibilityType})
	}
	return out
}

func byTier(employees []eligibleEmployee, tier domain.TicketVisibilityType) []eligibleEmployee {
	var out []eligibleEmployee
	for _, e := range employees {
		if e.tier == tier {
			out = append(out, e)
		}
	}
	return out
}

func organizationTier(employees []eligibleEmployee) UserSet {
	return usersOf(byTier(employees, domain.VisibilityOrganization))
}

func usersOf(employees []eligibleEmployee) UserSet {
	ids := make([]string, 0, len(employees))
	for _, e := range employees {
		ids = append(ids, e.employee.UserID)
	}
	return NewUserSet(ids...)
}

// applicableScopes returns the live scopes of the ticket's organization that cover its property.
// A ticket without a property is only covered by scopes with HasAllProperties.
func applicableScopes(in Input) []domain.PropertyScope {
	linked := make(map[string]struct{})
	if in.Ticket.PropertyID != nil {
		for _, sp := range in.ScopeProperties {
			if sp.DeletedAt == nil && sp.PropertyID == *in.Ticket.PropertyID {
				linked[sp.ScopeID] = struct{}{}
			}
		}
	}

	var out []domain.PropertyScope
	for _, s := range in.Scopes {
		if s.OrganizationID != in.Ticket.OrganizationID || s.DeletedAt != nil {
			continue
		}
		if _, ok := linked[s.ID]; s.HasAllProperties || ok {
			out = append(out, s)
		}
	}
	return out
}

func hasDefaultScope(scopes []domain.PropertyScope) bool {
	for _, s := range scopes {
		if s.HasAllEmployees {
			return true
		}
	}
	return false
}

// scopeMembers returns the ids of employees explicitly linked to any of scopes.
func scopeMembers(in Input, scopes []domain.PropertyScope) map[string]struct{} {
	ids := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		ids[s.ID] = struct{}{}
	}
	members := make(map[string]struct{})
	for _, link := range in.ScopeEmployees {
		if link.DeletedAt != nil {
			continue
		}
		if _, ok := ids[link.ScopeID]; ok {
			members[link.EmployeeID] = struct{}{}
		}
	}
	return members
}

func restrictTo(employees []eligibleEmployee, employeeIDs map[string]struct{}) []eligibleEmployee {
	var out []eligibleEmployee
	for _, e := range employees {
		if _, ok := employeeIDs[e.employee.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}

// specializationMatches keeps employees that handle every category, or the ticket's category.
func specializationMatches(in Input, employees []eligibleEmployee) UserSet {
	matching := make(map[string]struct{})
	if in.Ticket.CategoryClassifierID != nil {
		for _, s := range in.Specializations {
			if s.DeletedAt == nil && s.SpecializationID == *in.Ticket.CategoryClassifierID {
				matching[s.EmployeeID] = struct{}{}
			}
		}
	}

	var ids []string
	for _, e := range employees {
		if _, ok := matching[e.employee.ID]; e.employee.HasAllSpecializations || ok {
			ids = append(ids, e.employee.UserID)
		}
	}
	return NewUserSet(ids...)
}
