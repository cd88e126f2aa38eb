package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// RepairAction describes one correction the repairer made, or would make
// under dry-run
type RepairAction struct {
	Check          CheckKind         `json:"check"`
	DocumentID     uuid.UUID         `json:"document_id"`
	DocumentNumber string            `json:"document_number"`
	Amount         valueobject.Money `json:"amount"`
	Detail         string            `json:"detail"`
}

// RepairError is a per-record failure. The record it names was left
// untouched; other records in the same run may still have been repaired.
type RepairError struct {
	DocumentNumber string `json:"document_number"`
	Message        string `json:"message"`
}

// RepairResult is the outcome of one repair run
type RepairResult struct {
	Check   CheckKind      `json:"check"`
	DryRun  bool           `json:"dry_run"`
	RanAt   time.Time      `json:"ran_at"`
	Actions []RepairAction `json:"actions"`
	Errors  []RepairError  `json:"errors"`

	// Aggregates touched by the repair, for the caller to persist.
	// Empty under dry-run.
	UpdatedInvoices []*billing.Invoice           `json:"-"`
	UpdatedReceipts []*billing.Receipt           `json:"-"`
	NewCredits      []*billing.CreditTransaction `json:"-"`
}

// Repair corrects the inconsistencies one check finds. It mutates snapshot
// aggregates in place and lists them for the caller to persist; under
// dry-run it reports the same actions without touching anything. Repair is
// idempotent: running it twice makes the second run a no-op.
func (a *Auditor) Repair(snap *billing.Snapshot, kind CheckKind, dryRun bool) (*RepairResult, error) {
	if snap == nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Snapshot is required")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_CHECK", fmt.Sprintf("Unknown check kind %q", kind))
	}

	result := &RepairResult{
		Check:   kind,
		DryRun:  dryRun,
		RanAt:   time.Now(),
		Actions: make([]RepairAction, 0),
		Errors:  make([]RepairError, 0),
	}

	switch kind {
	case CheckBalanceDrift:
		a.repairBalanceDrift(snap, dryRun, result)
	case CheckMissingCredit:
		a.repairMissingCredit(snap, dryRun, result)
	case CheckIncompleteVoidReversal:
		a.repairIncompleteVoidReversal(snap, dryRun, result)
	case CheckDeletedBalanceForward:
		a.repairDeletedBalanceForward(snap, dryRun, result)
	}

	return result, nil
}

// repairBalanceDrift rewrites each drifted invoice's stored balance to the
// value recomputed from the payment history
func (a *Auditor) repairBalanceDrift(snap *billing.Snapshot, dryRun bool, result *RepairResult) {
	for _, f := range a.checkBalanceDrift(snap) {
		inv := snap.InvoiceByID(f.DocumentID)
		if inv == nil {
			result.Errors = append(result.Errors, RepairError{f.DocumentNumber, "invoice not in snapshot"})
			continue
		}
		if !dryRun {
			if err := inv.CorrectBalance(f.Expected); err != nil {
				result.Errors = append(result.Errors, RepairError{f.DocumentNumber, err.Error()})
				continue
			}
			result.UpdatedInvoices = append(result.UpdatedInvoices, inv)
		}
		result.Actions = append(result.Actions, RepairAction{
			Check:          CheckBalanceDrift,
			DocumentID:     f.DocumentID,
			DocumentNumber: f.DocumentNumber,
			Amount:         f.Difference,
			Detail:         fmt.Sprintf("Rewrite stored balance %s to recomputed %s", f.Actual, f.Expected),
		})
	}
}

// repairMissingCredit creates the credit transaction a receipt's
// unaccounted remainder should have produced
func (a *Auditor) repairMissingCredit(snap *billing.Snapshot, dryRun bool, result *RepairResult) {
	for _, f := range a.checkMissingCredit(snap) {
		rcpt := snap.ReceiptByID(f.DocumentID)
		if rcpt == nil {
			result.Errors = append(result.Errors, RepairError{f.DocumentNumber, "receipt not in snapshot"})
			continue
		}
		missing := f.Expected.Subtract(f.Actual)
		if !missing.IsPositive() {
			// Over-accounted receipts need human review, not an automatic
			// negative credit
			result.Errors = append(result.Errors, RepairError{
				f.DocumentNumber,
				fmt.Sprintf("receipt accounts for %s more than it collected; manual adjustment required", missing.Negate()),
			})
			continue
		}
		if !dryRun {
			credit, err := billing.NewOverpaymentCredit(
				rcpt.StudentID, rcpt.ID, missing, rcpt.PaymentDate,
				fmt.Sprintf("Audit repair: restored missing credit for receipt %s", rcpt.ReceiptNumber),
			)
			if err != nil {
				result.Errors = append(result.Errors, RepairError{f.DocumentNumber, err.Error()})
				continue
			}
			snap.Credits = append(snap.Credits, *credit)
			result.NewCredits = append(result.NewCredits, credit)
		}
		result.Actions = append(result.Actions, RepairAction{
			Check:          CheckMissingCredit,
			DocumentID:     f.DocumentID,
			DocumentNumber: f.DocumentNumber,
			Amount:         missing,
			Detail:         fmt.Sprintf("Create %s credit transaction for the unaccounted remainder", missing),
		})
	}
}

// repairIncompleteVoidReversal finishes the unwind a receipt void left
// half-done: reverses live allocations, restores invoice balances and
// reverses credits the receipt created
func (a *Auditor) repairIncompleteVoidReversal(snap *billing.Snapshot, dryRun bool, result *RepairResult) {
	for _, f := range a.checkIncompleteVoidReversal(snap) {
		rcpt := snap.ReceiptByID(f.DocumentID)
		if rcpt == nil {
			result.Errors = append(result.Errors, RepairError{f.DocumentNumber, "receipt not in snapshot"})
			continue
		}

		if !dryRun {
			failed := false
			for _, alloc := range rcpt.ActiveAllocations() {
				inv := snap.InvoiceByID(alloc.InvoiceID)
				if inv == nil {
					result.Errors = append(result.Errors, RepairError{f.DocumentNumber, fmt.Sprintf("invoice %s not in snapshot", alloc.InvoiceNumber)})
					failed = true
					break
				}
				if inv.IsVoided() {
					continue
				}
				if err := inv.ReleaseAllocation(alloc.AmountApplied); err != nil {
					result.Errors = append(result.Errors, RepairError{f.DocumentNumber, err.Error()})
					failed = true
					break
				}
				result.UpdatedInvoices = append(result.UpdatedInvoices, inv)
			}
			if failed {
				continue
			}
			rcpt.ReverseAllocations()
			result.UpdatedReceipts = append(result.UpdatedReceipts, rcpt)

			for i := range snap.Credits {
				c := snap.Credits[i]
				if c.Type != billing.CreditTypeCredit || c.SourceReceiptID == nil || *c.SourceReceiptID != rcpt.ID {
					continue
				}
				if creditAlreadyReversed(snap.Credits, c.ID) {
					continue
				}
				reversal, err := billing.NewCreditReversal(&c, valueobject.Today(),
					fmt.Sprintf("Audit repair: reversal for voided receipt %s", rcpt.ReceiptNumber))
				if err != nil {
					result.Errors = append(result.Errors, RepairError{f.DocumentNumber, err.Error()})
					continue
				}
				snap.Credits = append(snap.Credits, *reversal)
				result.NewCredits = append(result.NewCredits, reversal)
			}
		}

		result.Actions = append(result.Actions, RepairAction{
			Check:          CheckIncompleteVoidReversal,
			DocumentID:     f.DocumentID,
			DocumentNumber: f.DocumentNumber,
			Amount:         f.Actual,
			Detail:         "Reverse live allocations and unreversed credit left by the void",
		})
	}
}

// repairDeletedBalanceForward re-derives the lost balance forward from the
// stored total, which stays authoritative
func (a *Auditor) repairDeletedBalanceForward(snap *billing.Snapshot, dryRun bool, result *RepairResult) {
	for _, f := range a.checkDeletedBalanceForward(snap) {
		inv := snap.InvoiceByID(f.DocumentID)
		if inv == nil {
			result.Errors = append(result.Errors, RepairError{f.DocumentNumber, "invoice not in snapshot"})
			continue
		}
		inferred := f.Expected.Subtract(f.Actual)
		if !dryRun {
			if err := inv.RestoreBalanceForward(); err != nil {
				result.Errors = append(result.Errors, RepairError{f.DocumentNumber, err.Error()})
				continue
			}
			result.UpdatedInvoices = append(result.UpdatedInvoices, inv)
		}
		result.Actions = append(result.Actions, RepairAction{
			Check:          CheckDeletedBalanceForward,
			DocumentID:     f.DocumentID,
			DocumentNumber: f.DocumentNumber,
			Amount:         inferred,
			Detail:         fmt.Sprintf("Restore inferred balance forward %s from the stored total", inferred),
		})
	}
}

// creditAlreadyReversed reports whether any transaction reverses the given one
func creditAlreadyReversed(credits []billing.CreditTransaction, id uuid.UUID) bool {
	for i := range credits {
		if credits[i].IsReversalOf(id) {
			return true
		}
	}
	return false
}
