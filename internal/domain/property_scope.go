package domain

import "time"

// PropertyScope groups properties and employees of an organization.
type PropertyScope struct {
	ID               string
	OrganizationID   string
	Name             string
	HasAllProperties bool
	HasAllEmployees  bool
	DeletedAt        *time.Time
}

// PropertyScopeProperty is an explicit scope membership of a property.
type PropertyScopeProperty struct {
	ID         string
	ScopeID    string
	PropertyID string
	DeletedAt  *time.Time
}

// PropertyScopeOrganizationEmployee is an explicit scope membership of an employee.
type PropertyScopeOrganizationEmployee struct {
	ID         string
	ScopeID    string
	EmployeeID string
	DeletedAt  *time.Time
}
