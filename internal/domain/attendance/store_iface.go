package attendance

import (
	"context"
	"time"
)

type StoreAPI interface {
	CheckIn(ctx context.Context, r Record) (Record, error)
	GetForDay(ctx context.Context, employeeID string, workDate time.Time) (Record, error)
	CheckOut(ctx context.Context, recordID string, at time.Time, early bool) (Record, error)
	List(ctx context.Context, employeeID string, from, to time.Time, limit, offset int) ([]Record, int, error)
}
