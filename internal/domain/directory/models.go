package directory

import "time"

const (
	JobStatusActive   = "active"
	JobStatusInactive = "inactive"
)

type Employee struct {
	ID              string     `json:"id"`
	EmployeeCode    string     `json:"employeeCode"`
	FullName        string     `json:"fullName"`
	Email           string     `json:"email"`
	DepartmentID    *string    `json:"departmentId,omitempty"`
	SubDepartmentID *string    `json:"subDepartmentId,omitempty"`
	RoleID          *string    `json:"roleId,omitempty"`
	JobStatus       string     `json:"jobStatus"`
	DateOfJoining   *time.Time `json:"dateOfJoining,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type Department struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	SubDepartments []SubDepartment `json:"subDepartments"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type SubDepartment struct {
	ID           string    `json:"id"`
	DepartmentID string    `json:"departmentId"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Role struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	HierarchyLevel int       `json:"hierarchyLevel"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Match selects active employees by organisation placement. Empty fields
// match any value.
type Match struct {
	DepartmentID    string
	SubDepartmentID string
	RoleID          string
}
