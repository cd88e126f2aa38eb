package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

func TestNewReceipt(t *testing.T) {
	studentID := uuid.New()

	tests := []struct {
		name    string
		number  string
		student uuid.UUID
		amount  valueobject.Money
		method  PaymentMethod
		wantErr string
	}{
		{"valid receipt", "RCT-2026-0001", studentID, mny("500.00"), PaymentMethodCash, ""},
		{"empty receipt number", "", studentID, mny("500.00"), PaymentMethodCash, "INVALID_RECEIPT_NUMBER"},
		{"missing student", "RCT-2026-0002", uuid.Nil, mny("500.00"), PaymentMethodCash, "VALIDATION_FAILURE"},
		{"zero amount", "RCT-2026-0003", studentID, valueobject.ZeroMoney(), PaymentMethodCash, "INVALID_AMOUNT"},
		{"negative amount", "RCT-2026-0004", studentID, mny("-10.00"), PaymentMethodCash, "INVALID_AMOUNT"},
		{"invalid method", "RCT-2026-0005", studentID, mny("500.00"), PaymentMethod("BARTER"), "INVALID_PAYMENT_METHOD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReceipt(tt.number, tt.student, "Test Student", tt.amount, tt.method, day("2026-02-01"))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, r.UnallocatedAmount().Equals(tt.amount))
			assert.False(t, r.Voided)
			assert.Len(t, r.GetDomainEvents(), 1)
		})
	}
}

func TestReceipt_Allocate(t *testing.T) {
	studentID := uuid.New()

	t.Run("tracks allocated and unallocated amounts", func(t *testing.T) {
		r := makeReceipt(t, "RCT-1", studentID, "1000.00", "2026-02-01")
		invoiceID := uuid.New()

		alloc, err := r.Allocate(invoiceID, "INV-1", mny("600.00"), day("2026-02-01"))
		require.NoError(t, err)

		assert.Equal(t, invoiceID, alloc.InvoiceID)
		assert.True(t, alloc.IsActive())
		assert.True(t, r.AllocatedAmount().Equals(mny("600.00")))
		assert.True(t, r.UnallocatedAmount().Equals(mny("400.00")))
	})

	t.Run("rejects allocation beyond unallocated amount", func(t *testing.T) {
		r := makeReceipt(t, "RCT-2", studentID, "500.00", "2026-02-01")
		_, err := r.Allocate(uuid.New(), "INV-1", mny("300.00"), day("2026-02-01"))
		require.NoError(t, err)

		_, err = r.Allocate(uuid.New(), "INV-2", mny("300.00"), day("2026-02-01"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EXCEEDS_UNALLOCATED")
	})

	t.Run("rejects duplicate active allocation to the same invoice", func(t *testing.T) {
		r := makeReceipt(t, "RCT-3", studentID, "500.00", "2026-02-01")
		invoiceID := uuid.New()
		_, err := r.Allocate(invoiceID, "INV-1", mny("100.00"), day("2026-02-01"))
		require.NoError(t, err)

		_, err = r.Allocate(invoiceID, "INV-1", mny("100.00"), day("2026-02-01"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ALREADY_ALLOCATED")
	})

	t.Run("rejects allocation on a voided receipt", func(t *testing.T) {
		r := makeReceipt(t, "RCT-4", studentID, "500.00", "2026-02-01")
		require.NoError(t, r.Void("entered twice"))

		_, err := r.Allocate(uuid.New(), "INV-1", mny("100.00"), day("2026-02-01"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INVALID_STATE")
	})
}

func TestReceipt_ReverseAllocations(t *testing.T) {
	r := makeReceipt(t, "RCT-5", uuid.New(), "900.00", "2026-02-01")
	_, err := r.Allocate(uuid.New(), "INV-1", mny("500.00"), day("2026-02-01"))
	require.NoError(t, err)
	_, err = r.Allocate(uuid.New(), "INV-2", mny("400.00"), day("2026-02-01"))
	require.NoError(t, err)

	reversed := r.ReverseAllocations()

	assert.Len(t, reversed, 2)
	assert.True(t, r.AllocatedAmount().IsZero())
	assert.True(t, r.UnallocatedAmount().Equals(mny("900.00")))
	// Reversed allocations stay on the receipt for audit
	assert.Equal(t, 2, r.AllocationCount())
	assert.Empty(t, r.ActiveAllocations())
	for i := range r.Allocations {
		assert.True(t, r.Allocations[i].Reversed)
		assert.NotNil(t, r.Allocations[i].ReversedAt)
	}

	// Reversing again is a no-op
	assert.Empty(t, r.ReverseAllocations())
}

func TestReceipt_Void(t *testing.T) {
	r := makeReceipt(t, "RCT-6", uuid.New(), "500.00", "2026-02-01")

	require.Error(t, r.Void(""))
	require.NoError(t, r.Void("wrong student"))

	assert.True(t, r.Voided)
	assert.NotNil(t, r.VoidedAt)

	err := r.Void("again")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_STATE")
}

func TestReceipt_Approve(t *testing.T) {
	r := makeReceipt(t, "RCT-7", uuid.New(), "500.00", "2026-02-01")

	require.NoError(t, r.Approve())
	assert.True(t, r.Approved)
	// Idempotent
	require.NoError(t, r.Approve())

	voided := makeReceipt(t, "RCT-8", uuid.New(), "500.00", "2026-02-01")
	require.NoError(t, voided.Void("test"))
	require.Error(t, voided.Approve())
}
