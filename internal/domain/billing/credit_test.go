package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOverpaymentCredit(t *testing.T) {
	studentID := uuid.New()
	receiptID := uuid.New()

	t.Run("valid credit is positive", func(t *testing.T) {
		c, err := NewOverpaymentCredit(studentID, receiptID, mny("150.00"), day("2026-02-01"), "Overpayment on RCT-1")
		require.NoError(t, err)

		assert.Equal(t, CreditTypeCredit, c.Type)
		assert.True(t, c.Amount.Equals(mny("150.00")))
		require.NotNil(t, c.SourceReceiptID)
		assert.Equal(t, receiptID, *c.SourceReceiptID)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := NewOverpaymentCredit(studentID, receiptID, mny("0.00"), day("2026-02-01"), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INVALID_AMOUNT")
	})

	t.Run("rejects missing student", func(t *testing.T) {
		_, err := NewOverpaymentCredit(uuid.Nil, receiptID, mny("10.00"), day("2026-02-01"), "")
		require.Error(t, err)
	})
}

func TestNewCreditApplication_StoresNegativeAmount(t *testing.T) {
	c, err := NewCreditApplication(uuid.New(), uuid.New(), mny("80.00"), day("2026-02-10"), "Applied to INV-1")
	require.NoError(t, err)

	assert.Equal(t, CreditTypeApplication, c.Type)
	assert.True(t, c.Amount.Equals(mny("-80.00")))
}

func TestNewCreditReversal(t *testing.T) {
	studentID := uuid.New()

	t.Run("reversal has opposite amount and links the original", func(t *testing.T) {
		original, err := NewOverpaymentCredit(studentID, uuid.New(), mny("150.00"), day("2026-02-01"), "")
		require.NoError(t, err)

		rev, err := NewCreditReversal(original, day("2026-02-15"), "Receipt voided")
		require.NoError(t, err)

		assert.Equal(t, CreditTypeReversal, rev.Type)
		assert.True(t, rev.Amount.Equals(mny("-150.00")))
		assert.True(t, rev.IsReversalOf(original.ID))
		assert.Equal(t, studentID, rev.StudentID)
	})

	t.Run("reversing an application yields a positive amount", func(t *testing.T) {
		app, err := NewCreditApplication(studentID, uuid.New(), mny("80.00"), day("2026-02-10"), "")
		require.NoError(t, err)

		rev, err := NewCreditReversal(app, day("2026-02-15"), "Invoice voided")
		require.NoError(t, err)

		assert.True(t, rev.Amount.Equals(mny("80.00")))
	})

	t.Run("cannot reverse a reversal", func(t *testing.T) {
		original, err := NewOverpaymentCredit(studentID, uuid.New(), mny("150.00"), day("2026-02-01"), "")
		require.NoError(t, err)
		rev, err := NewCreditReversal(original, day("2026-02-15"), "")
		require.NoError(t, err)

		_, err = NewCreditReversal(rev, day("2026-02-16"), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INVALID_STATE")
	})
}

func TestCreditBalance(t *testing.T) {
	studentID := uuid.New()

	credit, err := NewOverpaymentCredit(studentID, uuid.New(), mny("200.00"), day("2026-02-01"), "")
	require.NoError(t, err)
	application, err := NewCreditApplication(studentID, uuid.New(), mny("120.00"), day("2026-02-05"), "")
	require.NoError(t, err)

	txns := []CreditTransaction{*credit, *application}
	assert.True(t, CreditBalance(txns).Equals(mny("80.00")))

	rev, err := NewCreditReversal(application, day("2026-02-10"), "")
	require.NoError(t, err)
	txns = append(txns, *rev)
	assert.True(t, CreditBalance(txns).Equals(mny("200.00")))

	assert.True(t, CreditBalance(nil).IsZero())
}
