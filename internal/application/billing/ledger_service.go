package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/ledger"
)

// LedgerService materializes student account statements on demand
type LedgerService struct {
	loader billing.SnapshotLoader
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(loader billing.SnapshotLoader) *LedgerService {
	return &LedgerService{loader: loader}
}

// StudentLedger loads the student's working set and materializes their
// ledger. Nothing is stored; two calls over unchanged data return
// identical statements.
func (s *LedgerService) StudentLedger(ctx context.Context, studentID uuid.UUID) (*ledger.Ledger, error) {
	snap, err := s.loader.LoadForStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student working set: %w", err)
	}
	return ledger.Materialize(snap, studentID)
}
