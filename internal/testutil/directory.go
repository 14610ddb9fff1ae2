package testutil

import (
	"context"
	"sync"

	ierr "github.com/koshtony/beezy-beta/internal/errors"
)

// StaticDirectory resolves approvers from a fixed table keyed by
// department, sub-department and role.
type StaticDirectory struct {
	mu    sync.RWMutex
	names map[string]string
	rules map[string][]string
}

func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{names: map[string]string{}, rules: map[string][]string{}}
}

func (d *StaticDirectory) AddEmployee(id, name string) *StaticDirectory {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[id] = name
	return d
}

func (d *StaticDirectory) AddRule(departmentID, subDepartmentID, roleID string, employeeIDs ...string) *StaticDirectory {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := departmentID + "|" + subDepartmentID + "|" + roleID
	d.rules[key] = append(d.rules[key], employeeIDs...)
	return d
}

func (d *StaticDirectory) ResolveApprovers(ctx context.Context, departmentID, subDepartmentID, roleID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.rules[departmentID+"|"+subDepartmentID+"|"+roleID]...), nil
}

func (d *StaticDirectory) EmployeeName(ctx context.Context, employeeID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.names[employeeID]
	if !ok {
		return "", ierr.NewError("employee not found").Mark(ierr.ErrNotFound)
	}
	return name, nil
}
