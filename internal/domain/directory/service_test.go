package directory

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	ierr "github.com/koshtony/beezy-beta/internal/errors"
)

type subDepartmentStore struct {
	StoreAPI
	err error
}

func (s subDepartmentStore) CreateSubDepartment(ctx context.Context, departmentID, name string) (SubDepartment, error) {
	return SubDepartment{}, s.err
}

func TestCreateSubDepartmentUnknownDepartment(t *testing.T) {
	for name, storeErr := range map[string]error{
		"missing department": &pgconn.PgError{Code: "23503"},
		"malformed id":       &pgconn.PgError{Code: "22P02"},
	} {
		svc := NewService(subDepartmentStore{err: storeErr})
		_, err := svc.CreateSubDepartment(context.Background(), "xyz", "Payables")
		assert.True(t, ierr.IsNotFound(err), name)
		assert.Equal(t, "department not found", ierr.DisplayMessage(err), name)
	}
}

func TestCreateSubDepartmentDuplicate(t *testing.T) {
	svc := NewService(subDepartmentStore{err: &pgconn.PgError{Code: "23505"}})
	_, err := svc.CreateSubDepartment(context.Background(), "d1", "Payables")
	assert.True(t, ierr.Is(err, ierr.ErrConflict))
}
