package audit

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// CheckKind names one of the auditor's integrity checks
type CheckKind string

const (
	CheckBalanceDrift           CheckKind = "BALANCE_DRIFT"            // Stored invoice balance disagrees with payment history
	CheckMissingCredit          CheckKind = "MISSING_CREDIT"           // Receipt remainder never became a credit transaction
	CheckIncompleteVoidReversal CheckKind = "INCOMPLETE_VOID_REVERSAL" // Voided receipt still has live allocations or credit
	CheckDeletedBalanceForward  CheckKind = "DELETED_BALANCE_FORWARD"  // Invoice total no longer matches items plus balance forward
)

// AllChecks lists every check in run order
var AllChecks = []CheckKind{
	CheckBalanceDrift,
	CheckMissingCredit,
	CheckIncompleteVoidReversal,
	CheckDeletedBalanceForward,
}

// IsValid checks if the check kind is valid
func (k CheckKind) IsValid() bool {
	for _, c := range AllChecks {
		if k == c {
			return true
		}
	}
	return false
}

// String returns the string representation
func (k CheckKind) String() string {
	return string(k)
}

// Finding is one detected inconsistency. A finding is data, not an error:
// the audit run succeeds even when every record drifted.
type Finding struct {
	Check          CheckKind         `json:"check"`
	DocumentID     uuid.UUID         `json:"document_id"`
	DocumentNumber string            `json:"document_number"`
	StudentID      uuid.UUID         `json:"student_id"`
	Expected       valueobject.Money `json:"expected"`
	Actual         valueobject.Money `json:"actual"`
	Difference     valueobject.Money `json:"difference"` // Signed: actual minus expected
	Detail         string            `json:"detail"`
}

// Report is the outcome of one audit run
type Report struct {
	RanAt           time.Time         `json:"ran_at"`
	InvoicesChecked int               `json:"invoices_checked"`
	ReceiptsChecked int               `json:"receipts_checked"`
	Findings        []Finding         `json:"findings"`
	CountByCheck    map[CheckKind]int `json:"count_by_check"`
}

// Clean returns true when the run found nothing
func (r *Report) Clean() bool {
	return len(r.Findings) == 0
}

// FindingsFor returns the findings of one check
func (r *Report) FindingsFor(kind CheckKind) []Finding {
	out := make([]Finding, 0)
	for _, f := range r.Findings {
		if f.Check == kind {
			out = append(out, f)
		}
	}
	return out
}

// Auditor runs integrity checks over a snapshot and never mutates it
type Auditor struct{}

// NewAuditor creates a new auditor
func NewAuditor() *Auditor {
	return &Auditor{}
}

// Run executes all four checks over the full snapshot, voided documents
// included. The result is deterministic for a given snapshot.
func (a *Auditor) Run(snap *billing.Snapshot) (*Report, error) {
	if snap == nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Snapshot is required")
	}

	r := &Report{
		RanAt:        time.Now(),
		Findings:     make([]Finding, 0),
		CountByCheck: make(map[CheckKind]int),
	}

	r.Findings = append(r.Findings, a.checkBalanceDrift(snap)...)
	r.Findings = append(r.Findings, a.checkMissingCredit(snap)...)
	r.Findings = append(r.Findings, a.checkIncompleteVoidReversal(snap)...)
	r.Findings = append(r.Findings, a.checkDeletedBalanceForward(snap)...)

	r.InvoicesChecked = len(snap.Invoices)
	r.ReceiptsChecked = len(snap.Receipts)
	for _, f := range r.Findings {
		r.CountByCheck[f.Check]++
	}

	sort.SliceStable(r.Findings, func(i, j int) bool {
		if r.Findings[i].Check != r.Findings[j].Check {
			return r.Findings[i].Check < r.Findings[j].Check
		}
		return r.Findings[i].DocumentNumber < r.Findings[j].DocumentNumber
	})

	return r, nil
}

// activeAllocationsByInvoice sums the active allocations of non-voided
// receipts per target invoice
func activeAllocationsByInvoice(snap *billing.Snapshot) map[uuid.UUID]valueobject.Money {
	sums := make(map[uuid.UUID]valueobject.Money)
	for _, rcpt := range snap.ActiveReceipts() {
		for _, alloc := range rcpt.ActiveAllocations() {
			sums[alloc.InvoiceID] = sums[alloc.InvoiceID].Add(alloc.AmountApplied)
		}
	}
	return sums
}

// netCreditAppliedByInvoice sums credit applications (net of reversals) per
// invoice. Application amounts are stored negative, so the net applied
// amount is the negated sum.
func netCreditAppliedByInvoice(snap *billing.Snapshot) map[uuid.UUID]valueobject.Money {
	sums := make(map[uuid.UUID]valueobject.Money)
	for i := range snap.Credits {
		c := snap.Credits[i]
		if c.SourceInvoiceID == nil {
			continue
		}
		if c.Type != billing.CreditTypeApplication && c.Type != billing.CreditTypeReversal {
			continue
		}
		sums[*c.SourceInvoiceID] = sums[*c.SourceInvoiceID].Subtract(c.Amount)
	}
	return sums
}

// checkBalanceDrift recomputes every non-voided invoice's balance from the
// payment history and reports any signed difference from the stored value
func (a *Auditor) checkBalanceDrift(snap *billing.Snapshot) []Finding {
	allocated := activeAllocationsByInvoice(snap)
	credited := netCreditAppliedByInvoice(snap)

	findings := make([]Finding, 0)
	for _, inv := range snap.ActiveInvoices() {
		expected := inv.TotalBill.Subtract(allocated[inv.ID]).Subtract(credited[inv.ID])
		if expected.Equals(inv.Balance) {
			continue
		}
		findings = append(findings, Finding{
			Check:          CheckBalanceDrift,
			DocumentID:     inv.ID,
			DocumentNumber: inv.InvoiceNumber,
			StudentID:      inv.StudentID,
			Expected:       expected,
			Actual:         inv.Balance,
			Difference:     inv.Balance.Subtract(expected),
			Detail:         fmt.Sprintf("Stored balance %s, recomputed %s from payment history", inv.Balance, expected),
		})
	}
	return findings
}

// checkMissingCredit verifies every non-voided receipt is exhaustive:
// active allocations plus credit created must equal the amount paid
func (a *Auditor) checkMissingCredit(snap *billing.Snapshot) []Finding {
	creditByReceipt := make(map[uuid.UUID]valueobject.Money)
	for i := range snap.Credits {
		c := snap.Credits[i]
		if c.SourceReceiptID == nil {
			continue
		}
		if c.Type != billing.CreditTypeCredit && c.Type != billing.CreditTypeReversal {
			continue
		}
		creditByReceipt[*c.SourceReceiptID] = creditByReceipt[*c.SourceReceiptID].Add(c.Amount)
	}

	findings := make([]Finding, 0)
	for _, rcpt := range snap.ActiveReceipts() {
		accounted := rcpt.AllocatedAmount().Add(creditByReceipt[rcpt.ID])
		if accounted.Equals(rcpt.AmountPaid) {
			continue
		}
		findings = append(findings, Finding{
			Check:          CheckMissingCredit,
			DocumentID:     rcpt.ID,
			DocumentNumber: rcpt.ReceiptNumber,
			StudentID:      rcpt.StudentID,
			Expected:       rcpt.AmountPaid,
			Actual:         accounted,
			Difference:     accounted.Subtract(rcpt.AmountPaid),
			Detail:         fmt.Sprintf("Paid %s but only %s accounted for by allocations and credit", rcpt.AmountPaid, accounted),
		})
	}
	return findings
}

// checkIncompleteVoidReversal finds voided receipts whose allocations or
// created credits were never unwound
func (a *Auditor) checkIncompleteVoidReversal(snap *billing.Snapshot) []Finding {
	unreversedCredit := make(map[uuid.UUID]valueobject.Money)
	for i := range snap.Credits {
		c := snap.Credits[i]
		if c.SourceReceiptID == nil {
			continue
		}
		if c.Type != billing.CreditTypeCredit && c.Type != billing.CreditTypeReversal {
			continue
		}
		unreversedCredit[*c.SourceReceiptID] = unreversedCredit[*c.SourceReceiptID].Add(c.Amount)
	}

	findings := make([]Finding, 0)
	for i := range snap.Receipts {
		rcpt := &snap.Receipts[i]
		if !rcpt.Voided {
			continue
		}

		live := rcpt.AllocatedAmount()
		remaining := unreversedCredit[rcpt.ID]
		if live.IsZero() && remaining.IsZero() {
			continue
		}
		findings = append(findings, Finding{
			Check:          CheckIncompleteVoidReversal,
			DocumentID:     rcpt.ID,
			DocumentNumber: rcpt.ReceiptNumber,
			StudentID:      rcpt.StudentID,
			Expected:       valueobject.ZeroMoney(),
			Actual:         live.Add(remaining),
			Difference:     live.Add(remaining),
			Detail:         fmt.Sprintf("Voided receipt still carries %s in live allocations and %s in unreversed credit", live, remaining),
		})
	}
	return findings
}

// checkDeletedBalanceForward finds invoices whose stored total no longer
// equals line items plus balance forward, inferring the missing amount
func (a *Auditor) checkDeletedBalanceForward(snap *billing.Snapshot) []Finding {
	findings := make([]Finding, 0)
	for i := range snap.Invoices {
		inv := &snap.Invoices[i]
		expected := inv.LineItemsTotal().Add(inv.BalanceForward)
		if expected.Equals(inv.TotalBill) {
			continue
		}
		findings = append(findings, Finding{
			Check:          CheckDeletedBalanceForward,
			DocumentID:     inv.ID,
			DocumentNumber: inv.InvoiceNumber,
			StudentID:      inv.StudentID,
			Expected:       inv.TotalBill,
			Actual:         expected,
			Difference:     expected.Subtract(inv.TotalBill),
			Detail:         fmt.Sprintf("Total bill %s but line items plus balance forward sum to %s; inferred missing balance forward %s", inv.TotalBill, expected, inv.TotalBill.Subtract(expected)),
		})
	}
	return findings
}
