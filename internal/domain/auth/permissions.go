package auth

import "context"

const (
	RoleHR       = "hr"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

const (
	PermDirectoryRead    = "directory.read"
	PermDirectoryWrite   = "directory.write"
	PermApprovalsDecide  = "approvals.decide"
	PermApprovalsRead    = "approvals.read"
	PermApprovalsConfig  = "approvals.config"
	PermLeaveRead        = "leave.read"
	PermLeaveWrite       = "leave.write"
	PermLeaveConfig      = "leave.config"
	PermPayrollRead      = "payroll.read"
	PermPayrollRun       = "payroll.run"
	PermOvertimeWrite    = "overtime.write"
	PermAttendanceRecord = "attendance.record"
	PermAuditRead        = "audit.read"
)

var DefaultPermissions = []string{
	PermDirectoryRead,
	PermDirectoryWrite,
	PermApprovalsDecide,
	PermApprovalsRead,
	PermApprovalsConfig,
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveConfig,
	PermPayrollRead,
	PermPayrollRun,
	PermOvertimeWrite,
	PermAttendanceRecord,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermDirectoryRead,
		PermApprovalsDecide,
		PermApprovalsRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermPayrollRead,
		PermOvertimeWrite,
		PermAttendanceRecord,
	},
	RoleManager: {
		PermDirectoryRead,
		PermApprovalsDecide,
		PermApprovalsRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermPayrollRead,
		PermOvertimeWrite,
		PermAttendanceRecord,
	},
	RoleHR: DefaultPermissions,
}

// StaticPermissions resolves permissions from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, roleName, permission string) (bool, error) {
	for _, perm := range RolePermissions[roleName] {
		if perm == permission {
			return true, nil
		}
	}
	return false, nil
}
