package directory

import "context"

type StoreAPI interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	CreateDepartment(ctx context.Context, name string) (Department, error)
	CreateSubDepartment(ctx context.Context, departmentID, name string) (SubDepartment, error)
	SubDepartmentBelongs(ctx context.Context, departmentID, subDepartmentID string) (bool, error)
	ListRoles(ctx context.Context) ([]Role, error)
	CreateRole(ctx context.Context, name string, hierarchyLevel int) (Role, error)
	ListEmployees(ctx context.Context, limit, offset int) ([]Employee, error)
	CountEmployees(ctx context.Context) (int, error)
	GetEmployee(ctx context.Context, employeeID string) (Employee, error)
	CreateEmployee(ctx context.Context, emp Employee) (Employee, error)
	MatchEmployees(ctx context.Context, match Match) ([]string, error)
}
