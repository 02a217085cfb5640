package purchase

import (
	"context"
	"sync"

	"github.com/google/uuid"

	pkgerrors "github.com/voucherbay/voucherbay-backend/pkg/errors"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
)

// Locker is the slice of the voucher repository the lock handle needs.
type Locker interface {
	TryLock(ctx context.Context, id uuid.UUID) (bool, error)
	Unlock(ctx context.Context, id uuid.UUID) error
}

// Lock is a scoped hold on a voucher's purchase-intent flag. Callers acquire
// it at the top of the flow and release via defer, so the flag cannot survive
// any exit path of a purchase attempt.
type Lock struct {
	voucherID uuid.UUID
	locker    Locker
	logg      *logger.Logger
	once      sync.Once
}

func acquireLock(ctx context.Context, locker Locker, voucherID uuid.UUID, logg *logger.Logger) (*Lock, error) {
	held, err := locker.TryLock(ctx, voucherID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire voucher lock")
	}
	if !held {
		return nil, pkgerrors.New(pkgerrors.CodeLocked, "voucher is held by another purchase attempt")
	}
	return &Lock{voucherID: voucherID, locker: locker, logg: logg}, nil
}

// Release clears the flag. Idempotent; errors are logged rather than returned
// so a deferred release never masks the flow's outcome.
func (l *Lock) Release(ctx context.Context) {
	l.once.Do(func() {
		if err := l.locker.Unlock(ctx, l.voucherID); err != nil && l.logg != nil {
			l.logg.Error(l.logg.WithVoucherID(ctx, l.voucherID.String()), "purchase.lock_release_failed", err)
		}
	})
}
