package billing

import (
	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// FeeCategory groups fee catalog entries for reporting
type FeeCategory string

const (
	FeeCategoryTuition   FeeCategory = "TUITION"
	FeeCategoryBoarding  FeeCategory = "BOARDING"
	FeeCategoryTransport FeeCategory = "TRANSPORT"
	FeeCategoryActivity  FeeCategory = "ACTIVITY"
	FeeCategoryOther     FeeCategory = "OTHER"
)

// IsValid checks if the fee category is valid
func (c FeeCategory) IsValid() bool {
	switch c {
	case FeeCategoryTuition, FeeCategoryBoarding, FeeCategoryTransport,
		FeeCategoryActivity, FeeCategoryOther:
		return true
	}
	return false
}

// FeeItem is an entry in the fee catalog: a named charge with a fixed
// amount for a term. Invoice line items reference fee items by ID; the
// collection report rolls allocations up by fee name.
type FeeItem struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Category  FeeCategory       `json:"category"`
	Amount    valueobject.Money `json:"amount"`
	TermID    string            `json:"term_id"`
	Mandatory bool              `json:"mandatory"`
}

// NewFeeItem creates a new fee catalog entry
func NewFeeItem(name string, category FeeCategory, amount valueobject.Money, termID string, mandatory bool) (*FeeItem, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_FEE_NAME", "Fee name cannot be empty")
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_FEE_CATEGORY", "Fee category is not valid")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Fee amount cannot be negative")
	}
	if termID == "" {
		return nil, shared.NewDomainError("INVALID_TERM", "Term ID cannot be empty")
	}
	return &FeeItem{
		ID:        uuid.New(),
		Name:      name,
		Category:  category,
		Amount:    amount,
		TermID:    termID,
		Mandatory: mandatory,
	}, nil
}
