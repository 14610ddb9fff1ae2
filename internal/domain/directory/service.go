package directory

import (
	"context"
	"strings"

	ierr "github.com/koshtony/beezy-beta/internal/errors"
	"github.com/koshtony/beezy-beta/internal/platform/querier"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.store.ListDepartments(ctx)
}

func (s *Service) CreateDepartment(ctx context.Context, name string) (Department, error) {
	dep, err := s.store.CreateDepartment(ctx, strings.TrimSpace(name))
	if querier.IsUniqueViolation(err) {
		return Department{}, ierr.WithError(err).
			WithHintf("department %q already exists", name).
			Mark(ierr.ErrConflict)
	}
	return dep, err
}

func (s *Service) CreateSubDepartment(ctx context.Context, departmentID, name string) (SubDepartment, error) {
	sub, err := s.store.CreateSubDepartment(ctx, departmentID, strings.TrimSpace(name))
	switch {
	case querier.IsUniqueViolation(err):
		return SubDepartment{}, ierr.WithError(err).
			WithHintf("sub-department %q already exists", name).
			Mark(ierr.ErrConflict)
	case querier.IsForeignKeyViolation(err), querier.IsInvalidText(err):
		return SubDepartment{}, ierr.WithError(err).
			WithHint("department not found").
			Mark(ierr.ErrNotFound)
	}
	return sub, err
}

func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

func (s *Service) CreateRole(ctx context.Context, name string, hierarchyLevel int) (Role, error) {
	role, err := s.store.CreateRole(ctx, strings.TrimSpace(name), hierarchyLevel)
	if querier.IsUniqueViolation(err) {
		return Role{}, ierr.WithError(err).
			WithHintf("role %q already exists", name).
			Mark(ierr.ErrConflict)
	}
	return role, err
}

func (s *Service) ListEmployees(ctx context.Context, limit, offset int) ([]Employee, int, error) {
	total, err := s.store.CountEmployees(ctx)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.ListEmployees(ctx, limit, offset)
	return items, total, err
}

func (s *Service) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if querier.IsNoRows(err) {
		return Employee{}, ierr.WithError(err).
			WithHint("employee not found").
			Mark(ierr.ErrNotFound)
	}
	return emp, err
}

func (s *Service) CreateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	if emp.JobStatus == "" {
		emp.JobStatus = JobStatusActive
	}
	if emp.SubDepartmentID != nil {
		if emp.DepartmentID == nil {
			return Employee{}, ierr.NewError("sub-department without department").
				WithHint("subDepartmentId requires departmentId").
				Mark(ierr.ErrValidation)
		}
		ok, err := s.store.SubDepartmentBelongs(ctx, *emp.DepartmentID, *emp.SubDepartmentID)
		if err != nil {
			return Employee{}, err
		}
		if !ok {
			return Employee{}, ierr.NewError("sub-department outside department").
				WithHint("sub-department does not belong to the department").
				Mark(ierr.ErrValidation)
		}
	}

	created, err := s.store.CreateEmployee(ctx, emp)
	switch {
	case querier.IsUniqueViolation(err):
		return Employee{}, ierr.WithError(err).
			WithHintf("employee code %q already exists", emp.EmployeeCode).
			Mark(ierr.ErrConflict)
	case querier.IsForeignKeyViolation(err):
		return Employee{}, ierr.WithError(err).
			WithHint("department, sub-department or role not found").
			Mark(ierr.ErrValidation)
	}
	return created, err
}

// ResolveApprovers lists active employees matching an approver rule.
func (s *Service) ResolveApprovers(ctx context.Context, departmentID, subDepartmentID, roleID string) ([]string, error) {
	return s.store.MatchEmployees(ctx, Match{
		DepartmentID:    departmentID,
		SubDepartmentID: subDepartmentID,
		RoleID:          roleID,
	})
}

func (s *Service) EmployeeName(ctx context.Context, employeeID string) (string, error) {
	emp, err := s.GetEmployee(ctx, employeeID)
	if err != nil {
		return "", err
	}
	return emp.FullName, nil
}
