package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var defaultApprovalTypes = []struct {
	Name        string
	Description string
}{
	{Name: "Leave", Description: "Leave request sign-off"},
	{Name: "Payroll", Description: "Monthly employee payroll sign-off"},
	{Name: "Overtime", Description: "Overtime claim sign-off"},
}

var defaultRoles = []struct {
	Name  string
	Level int
}{
	{Name: "HR", Level: 30},
	{Name: "Manager", Level: 20},
	{Name: "Employee", Level: 10},
}

var defaultLeaveTypes = []struct {
	Name string
	Days string
}{
	{Name: "Annual", Days: "21"},
	{Name: "Sick", Days: "14"},
}

// Seed inserts the reference rows the workflows depend on. It is safe to run
// on every start.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	if err := ensureRoles(ctx, pool); err != nil {
		return err
	}
	if err := ensureApprovalTypes(ctx, pool); err != nil {
		return err
	}
	return ensureLeaveTypes(ctx, pool)
}

func ensureRoles(ctx context.Context, pool *pgxpool.Pool) error {
	for _, role := range defaultRoles {
		_, err := pool.Exec(ctx, `
    INSERT INTO roles (name, hierarchy_level) VALUES ($1, $2)
    ON CONFLICT (name) DO NOTHING
  `, role.Name, role.Level)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureApprovalTypes(ctx context.Context, pool *pgxpool.Pool) error {
	for _, t := range defaultApprovalTypes {
		_, err := pool.Exec(ctx, `
    INSERT INTO approval_types (name, description) VALUES ($1, $2)
    ON CONFLICT (name) DO NOTHING
  `, t.Name, t.Description)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureLeaveTypes(ctx context.Context, pool *pgxpool.Pool) error {
	for _, lt := range defaultLeaveTypes {
		_, err := pool.Exec(ctx, `
    INSERT INTO leave_types (name, days_per_year) VALUES ($1, $2::numeric)
    ON CONFLICT (name) DO NOTHING
  `, lt.Name, lt.Days)
		if err != nil {
			return err
		}
	}
	return nil
}
