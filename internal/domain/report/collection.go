package report

import (
	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// FeesCollectionReport totals money collected in a window, broken down by
// fee type, payment method and enrollment
type FeesCollectionReport struct {
	Start        valueobject.Date             `json:"start"`
	End          valueobject.Date             `json:"end"`
	ByFeeType    map[string]valueobject.Money `json:"by_fee_type"`
	ByMethod     map[string]valueobject.Money `json:"by_method"`
	ByEnrollment map[string]valueobject.Money `json:"by_enrollment"`
	Total        valueobject.Money            `json:"total"`
	ReceiptCount int                          `json:"receipt_count"`
	Unallocated  valueobject.Money            `json:"unallocated"` // Collected but not applied to any invoice
}

// BuildFeesCollectionReport builds the collection report over non-voided
// receipts whose payment date falls inside the window.
//
// Fee-type totals are a proportional distribution: each active allocation
// is spread across its invoice's line items in ratio item.Amount/TotalBill,
// with the rounding remainder landing on the last line item so the shares
// sum exactly to the allocation. Invoices with a non-positive total or no
// line items are skipped for fee-type distribution; the receipt still
// counts in the overall and per-method totals.
func BuildFeesCollectionReport(snap *billing.Snapshot, window DateRangeFilter) (*FeesCollectionReport, error) {
	if snap == nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Snapshot is required")
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	r := &FeesCollectionReport{
		Start:        window.Start,
		End:          window.End,
		ByFeeType:    make(map[string]valueobject.Money),
		ByMethod:     make(map[string]valueobject.Money),
		ByEnrollment: make(map[string]valueobject.Money),
		Total:        valueobject.ZeroMoney(),
		Unallocated:  valueobject.ZeroMoney(),
	}

	for _, rcpt := range snap.ActiveReceipts() {
		if !window.Contains(rcpt.PaymentDate) {
			continue
		}

		r.Total = r.Total.Add(rcpt.AmountPaid)
		r.ByMethod[rcpt.PaymentMethod.String()] = r.ByMethod[rcpt.PaymentMethod.String()].Add(rcpt.AmountPaid)
		r.ReceiptCount++
		r.Unallocated = r.Unallocated.Add(rcpt.UnallocatedAmount())

		for _, alloc := range rcpt.ActiveAllocations() {
			inv := snap.InvoiceByID(alloc.InvoiceID)
			if inv == nil {
				// Dangling allocation; the auditor reports it, the
				// collection report skips it and keeps going.
				continue
			}

			r.ByEnrollment[inv.EnrollmentName] = r.ByEnrollment[inv.EnrollmentName].Add(alloc.AmountApplied)

			distributeAllocation(r.ByFeeType, inv, alloc.AmountApplied)
		}
	}

	return r, nil
}

// distributeAllocation spreads one allocation across the invoice's line
// items in proportion to each item's share of the total bill. Any balance
// forward included in the total takes the leftover share under its own key,
// so the distributed pieces always sum exactly to the allocation.
func distributeAllocation(byFeeType map[string]valueobject.Money, inv *billing.Invoice, applied valueobject.Money) {
	if len(inv.LineItems) == 0 || !inv.TotalBill.IsPositive() {
		return
	}

	total := inv.TotalBill.Amount()
	distributed := valueobject.ZeroMoney()

	for i, item := range inv.LineItems {
		var share valueobject.Money
		if i == len(inv.LineItems)-1 && !inv.BalanceForward.IsPositive() {
			// Rounding remainder lands on the last item
			share = applied.Subtract(distributed)
		} else {
			share = applied.Multiply(item.Amount.Amount().Div(total)).Round(2)
		}
		byFeeType[item.FeeName] = byFeeType[item.FeeName].Add(share)
		distributed = distributed.Add(share)
	}

	if inv.BalanceForward.IsPositive() {
		// The remainder is signed: rounding the item shares up can
		// overshoot the allocation, and the overshoot comes out of the
		// balance forward share so the pieces still sum exactly
		remainder := applied.Subtract(distributed)
		if !remainder.IsZero() {
			byFeeType["Balance Forward"] = byFeeType["Balance Forward"].Add(remainder)
		}
	}
}
