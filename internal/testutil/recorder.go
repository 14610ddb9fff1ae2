package testutil

import (
	"context"
	"sync"

	"github.com/koshtony/beezy-beta/internal/domain/notifications"
)

// OutboxRecorder captures notifications handed over for e-mail delivery.
type OutboxRecorder struct {
	mu        sync.Mutex
	delivered []notifications.Outbound
}

func (r *OutboxRecorder) Deliver(ctx context.Context, outbound []notifications.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, outbound...)
}

func (r *OutboxRecorder) Delivered() []notifications.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Outbound(nil), r.delivered...)
}
