package ledger

import (
	"context"

	"finance-ledger-go/internal/store"
)

// DuplicateDetector decides whether a posting repeats one already on the
// account. A key without a merchant is never a duplicate.
type DuplicateDetector struct {
	store store.LedgerStore
}

func NewDuplicateDetector(st store.LedgerStore) *DuplicateDetector {
	return &DuplicateDetector{store: st}
}

func (d *DuplicateDetector) IsDuplicate(ctx context.Context, key store.DuplicateKey) (bool, error) {
	if !key.Checkable() {
		return false, nil
	}
	return d.store.IsDuplicate(ctx, key)
}
