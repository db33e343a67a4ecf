package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-automation/internal/domain"
)

// OrganizationSnapshot holds every record visibility resolution needs for one organization.
type OrganizationSnapshot struct {
	Employees       []domain.OrganizationEmployee
	Roles           []domain.OrganizationEmployeeRole
	Scopes          []domain.PropertyScope
	ScopeProperties []domain.PropertyScopeProperty
	ScopeEmployees  []domain.PropertyScopeOrganizationEmployee
	Specializations []domain.OrganizationEmployeeSpecialization
}

// VisibilityRepository loads employee, role and scope records of an organization.
type VisibilityRepository interface {
	LoadOrganization(ctx context.Context, organizationID string) (*OrganizationSnapshot, error)
}

type visibilityRepository struct {
	pool *pgxpool.Pool
}

// NewVisibilityRepository instantiates the repository.
func NewVisibilityRepository(pool *pgxpool.Pool) VisibilityRepository {
	return &visibilityRepository{pool: pool}
}

func (r *visibilityRepository) LoadOrganization(ctx context.Context, organizationID string) (*OrganizationSnapshot, error) {
	snapshot := &OrganizationSnapshot{}
	var err error

	if snapshot.Employees, err = r.employees(ctx, organizationID); err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	if snapshot.Roles, err = r.roles(ctx, organizationID); err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	if snapshot.Scopes, err = r.scopes(ctx, organizationID); err != nil {
		return nil, fmt.Errorf("load property scopes: %w", err)
	}
	if snapshot.ScopeProperties, err = r.scopeProperties(ctx, organizationID); err != nil {
		return nil, fmt.Errorf("load scope properties: %w", err)
	}
	if snapshot.ScopeEmployees, err = r.scopeEmployees(ctx, organizationID); err != nil {
		return nil, fmt.Errorf("load scope employees: %w", err)
	}
	if snapshot.Specializations, err = r.specializations(ctx, organizationID); err != nil {
		return nil, fmt.Errorf("load specializations: %w", err)
	}
	return snapshot, nil
}

func (r *visibilityRepository) employees(ctx context.Context, organizationID string) ([]domain.OrganizationEmployee, error) {
	const query = `
        SELECT id, organization_id, user_id, role_id, is_blocked, is_rejected, is_accepted,
               has_all_specializations, created_at, deleted_at
        FROM organization_employees
        WHERE organization_id=$1 AND deleted_at IS NULL AND is_blocked=false AND is_rejected=false`
	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OrganizationEmployee
	for rows.Next() {
		var e domain.OrganizationEmployee
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.UserID, &e.RoleID, &e.IsBlocked, &e.IsRejected,
			&e.IsAccepted, &e.HasAllSpecializations, &e.CreatedAt, &e.DeletedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *visibilityRepository) roles(ctx context.Context, organizationID string) ([]domain.OrganizationEmployeeRole, error) {
	const query = `
        SELECT id, organization_id, name, ticket_visibility_type, can_read_tickets
        FROM organization_employee_roles
        WHERE organization_id=$1 AND deleted_at IS NULL`
	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OrganizationEmployeeRole
	for rows.Next() {
		var role domain.OrganizationEmployeeRole
		if err := rows.Scan(&role.ID, &role.OrganizationID, &role.Name, &role.TicketVisibilityType, &role.CanReadTickets); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	return result, rows.Err()
}

func (r *visibilityRepository) scopes(ctx context.Context, organizationID string) ([]domain.PropertyScope, error) {
	const query = `
        SELECT id, organization_id, name, has_all_properties, has_all_employees, deleted_at
        FROM property_scopes
        WHERE organization_id=$1 AND deleted_at IS NULL`
	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PropertyScope
	for rows.Next() {
		var s domain.PropertyScope
		if err := rows.Scan(&s.ID, &s.OrganizationID, &s.Name, &s.HasAllProperties, &s.HasAllEmployees, &s.DeletedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *visibilityRepository) scopeProperties(ctx context.Context, organizationID string) ([]domain.PropertyScopeProperty, error) {
	const query = `
        SELECT psp.id, psp.scope_id, psp.property_id, psp.deleted_at
        FROM property_scope_properties psp
        JOIN property_scopes ps ON ps.id = psp.scope_id
        WHERE ps.organization_id=$1 AND ps.deleted_at IS NULL AND psp.deleted_at IS NULL`
	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PropertyScopeProperty, error) {
		var link domain.PropertyScopeProperty
		err := row.Scan(&link.ID, &link.ScopeID, &link.PropertyID, &link.DeletedAt)
		return link, err
	})
}

func (r *visibilityRepository) scopeEmployees(ctx context.Context, organizationID string) ([]domain.PropertyScopeOrganizationEmployee, error) {
	const query = `
        SELECT pse.id, pse.scope_id, pse.employee_id, pse.deleted_at
        FROM property_scope_organization_employees pse
        JOIN property_scopes ps ON ps.id = pse.scope_id
        WHERE ps.organization_id=$1 AND ps.deleted_at IS NULL AND pse.deleted_at IS NULL`
	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PropertyScopeOrganizationEmployee, error) {
		var link domain.PropertyScopeOrganizationEmployee
		err := row.Scan(&link.ID, &link.ScopeID, &link.EmployeeID, &link.DeletedAt)
		return link, err
	})
}

func (r *visibilityRepository) specializations(ctx context.Context, organizationID string) ([]domain.OrganizationEmployeeSpecialization, error) {
	const query = `
        SELECT oes.id, oes.employee_id, oes.specialization_id, oes.deleted_at
        FROM organization_employee_specializations oes
        JOIN organization_employees oe ON oe.id = oes.employee_id
        WHERE oe.organization_id=$1 AND oe.deleted_at IS NULL AND oes.deleted_at IS NULL`
	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OrganizationEmployeeSpecialization, error) {
		var spec domain.OrganizationEmployeeSpecialization
		err := row.Scan(&spec.ID, &spec.EmployeeID, &spec.SpecializationID, &spec.DeletedAt)
		return spec, err
	})
}
