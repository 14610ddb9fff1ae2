package directory

import (
	"context"
	"fmt"
	"time"
)

const employeeColumns = `id, employee_code, full_name, email, department_id::text, sub_department_id::text,
    role_id::text, job_status, date_of_joining, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (Employee, error) {
	var emp Employee
	err := row.Scan(&emp.ID, &emp.EmployeeCode, &emp.FullName, &emp.Email, &emp.DepartmentID, &emp.SubDepartmentID,
		&emp.RoleID, &emp.JobStatus, &emp.DateOfJoining, &emp.CreatedAt, &emp.UpdatedAt)
	return emp, err
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT d.id, d.name, d.created_at, s.id::text, s.name, s.created_at
    FROM departments d
    LEFT JOIN sub_departments s ON s.department_id = d.id
    ORDER BY d.name, s.name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Department{}
	index := map[string]int{}
	for rows.Next() {
		var dep Department
		var subID, subName *string
		var subCreated *time.Time
		if err := rows.Scan(&dep.ID, &dep.Name, &dep.CreatedAt, &subID, &subName, &subCreated); err != nil {
			return nil, err
		}
		pos, ok := index[dep.ID]
		if !ok {
			dep.SubDepartments = []SubDepartment{}
			out = append(out, dep)
			pos = len(out) - 1
			index[dep.ID] = pos
		}
		if subID != nil {
			out[pos].SubDepartments = append(out[pos].SubDepartments, SubDepartment{
				ID:           *subID,
				DepartmentID: dep.ID,
				Name:         deref(subName),
				CreatedAt:    derefTime(subCreated),
			})
		}
	}
	return out, rows.Err()
}

func (s *Store) CreateDepartment(ctx context.Context, name string) (Department, error) {
	dep := Department{Name: name, SubDepartments: []SubDepartment{}}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (name) VALUES ($1)
    RETURNING id, created_at
  `, name).Scan(&dep.ID, &dep.CreatedAt)
	return dep, err
}

func (s *Store) CreateSubDepartment(ctx context.Context, departmentID, name string) (SubDepartment, error) {
	sub := SubDepartment{DepartmentID: departmentID, Name: name}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO sub_departments (department_id, name) VALUES ($1,$2)
    RETURNING id, created_at
  `, departmentID, name).Scan(&sub.ID, &sub.CreatedAt)
	return sub, err
}

func (s *Store) SubDepartmentBelongs(ctx context.Context, departmentID, subDepartmentID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM sub_departments WHERE id::text = $1 AND department_id::text = $2)
  `, subDepartmentID, departmentID).Scan(&exists)
	return exists, err
}

func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, hierarchy_level, created_at
    FROM roles
    ORDER BY hierarchy_level DESC, name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Role{}
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.HierarchyLevel, &role.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (s *Store) CreateRole(ctx context.Context, name string, hierarchyLevel int) (Role, error) {
	role := Role{Name: name, HierarchyLevel: hierarchyLevel}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO roles (name, hierarchy_level) VALUES ($1,$2)
    RETURNING id, created_at
  `, name, hierarchyLevel).Scan(&role.ID, &role.CreatedAt)
	return role, err
}

func (s *Store) ListEmployees(ctx context.Context, limit, offset int) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`
    SELECT %s
    FROM employees
    ORDER BY full_name
    LIMIT $1 OFFSET $2
  `, employeeColumns), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) CountEmployees(ctx context.Context) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees").Scan(&total)
	return total, err
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	row := s.DB.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM employees WHERE id::text = $1", employeeColumns), employeeID)
	return scanEmployee(row)
}

func (s *Store) CreateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	row := s.DB.QueryRow(ctx, fmt.Sprintf(`
    INSERT INTO employees (employee_code, full_name, email, department_id, sub_department_id, role_id, job_status, date_of_joining)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING %s
  `, employeeColumns), emp.EmployeeCode, emp.FullName, emp.Email, emp.DepartmentID, emp.SubDepartmentID, emp.RoleID, emp.JobStatus, emp.DateOfJoining)
	return scanEmployee(row)
}

// MatchEmployees returns active employees placed under the match. Empty
// fields are wildcards.
func (s *Store) MatchEmployees(ctx context.Context, match Match) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id
    FROM employees
    WHERE job_status = 'active'
      AND ($1 = '' OR department_id::text = $1)
      AND ($2 = '' OR sub_department_id::text = $2)
      AND ($3 = '' OR role_id::text = $3)
    ORDER BY full_name, id
  `, match.DepartmentID, match.SubDepartmentID, match.RoleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func derefTime(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
