package approvals

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/koshtony/beezy-beta/internal/domain/audit"
	"github.com/koshtony/beezy-beta/internal/domain/notifications"
	"github.com/koshtony/beezy-beta/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx TxStore) error) error {
	return querier.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		return fn(s.Join(tx))
	})
}

func (s *Store) Join(q querier.Querier) TxStore {
	return &txStore{
		Store:         Store{DB: q},
		notifications: notifications.NewStore(q),
		audit:         audit.NewStore(q),
	}
}

// txStore runs every statement on one transaction.
type txStore struct {
	Store
	notifications *notifications.Store
	audit         *audit.Store
}

func (t *txStore) Querier() querier.Querier {
	return t.DB
}

func (t *txStore) CreateNotification(ctx context.Context, n notifications.Notification) (notifications.Notification, error) {
	return t.notifications.Create(ctx, n)
}

func (t *txStore) RecordAudit(ctx context.Context, entry audit.Entry) error {
	return t.audit.Record(ctx, entry)
}

var (
	_ StoreAPI = (*Store)(nil)
	_ TxStore  = (*txStore)(nil)
)
