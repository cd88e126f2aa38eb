package billing

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/strategy"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// AllocationStrategyType defines how a payment is spread across invoices
type AllocationStrategyType string

const (
	AllocationStrategyOldestFirst AllocationStrategyType = "OLDEST_FIRST" // Earliest due date settled first
	AllocationStrategyTargeted    AllocationStrategyType = "TARGETED"     // A caller-chosen invoice settled first
)

// IsValid checks if the strategy type is valid
func (t AllocationStrategyType) IsValid() bool {
	return t == AllocationStrategyOldestFirst || t == AllocationStrategyTargeted
}

// String returns the string representation
func (t AllocationStrategyType) String() string {
	return string(t)
}

// AllocationOutcome is the result of allocating a receipt across invoices
type AllocationOutcome struct {
	Allocations   []Allocation       // Allocations recorded on the receipt
	UpdatedIDs    []uuid.UUID        // Invoices whose balances changed
	TotalApplied  valueobject.Money  // Amount applied to invoices
	CreditCreated *CreditTransaction // Overpayment credit, nil when fully applied
}

// ReversalOutcome is the result of reversing a voided receipt
type ReversalOutcome struct {
	RestoredAllocations []Allocation        // Allocations that were reversed
	RestoredIDs         []uuid.UUID         // Invoices whose balances were restored
	CreditReversals     []CreditTransaction // Reversal rows for credits the receipt created
	TotalRestored       valueobject.Money
}

// ReversalConflictError reports that a receipt's overpayment credit was
// already consumed by later applications, so the reversal cannot be applied
// automatically. The conflicting application transactions are listed for a
// human to resolve.
type ReversalConflictError struct {
	ReceiptNumber           string
	CreditToReverse         valueobject.Money
	AvailableCredit         valueobject.Money
	ConflictingApplications []uuid.UUID
}

// Error implements the error interface
func (e *ReversalConflictError) Error() string {
	return fmt.Sprintf("cannot reverse receipt %s: credit %s already consumed, only %s remains (%d conflicting applications)",
		e.ReceiptNumber, e.CreditToReverse, e.AvailableCredit, len(e.ConflictingApplications))
}

// Unwrap lets errors.Is match shared.ErrReversalConflict
func (e *ReversalConflictError) Unwrap() error {
	return shared.ErrReversalConflict
}

// sortOldestFirst orders open invoices earliest-obligation-first: by due
// date ascending (zero due dates last), then issue date, then invoice
// number for determinism.
func sortOldestFirst(invoices []*Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		di, dj := invoices[i].DueDate, invoices[j].DueDate
		switch {
		case !di.IsZero() && !dj.IsZero() && !di.Equal(dj):
			return di.Before(dj)
		case di.IsZero() != dj.IsZero():
			return !di.IsZero()
		}
		if !invoices[i].IssueDate.Equal(invoices[j].IssueDate) {
			return invoices[i].IssueDate.Before(invoices[j].IssueDate)
		}
		return invoices[i].InvoiceNumber < invoices[j].InvoiceNumber
	})
}

// AllocationEngine distributes receipts across invoices and reverses those
// distributions when a receipt is voided. It mutates the receipt, the
// target invoices and nothing else; persisting the outcome atomically is
// the caller's concern.
type AllocationEngine struct {
	strategy.BaseStrategy
}

// NewAllocationEngine creates a new allocation engine
func NewAllocationEngine() *AllocationEngine {
	return &AllocationEngine{
		BaseStrategy: strategy.NewBaseStrategy(
			"payment_allocation",
			strategy.StrategyTypeAllocation,
			"Applies receipts to open invoices oldest due date first and converts overpayment into student credit",
		),
	}
}

// AllocateOptions tunes a single allocation run
type AllocateOptions struct {
	// TargetInvoiceID, when set, is settled before any other invoice
	TargetInvoiceID uuid.UUID
}

// Allocate applies a receipt's amount across the given candidate invoices.
// Candidates are filtered to the receipt's student and to open invoices;
// they are paid oldest due date first (or the targeted invoice first).
// Per invoice the applied amount is min(remaining, outstanding); any
// remainder after all candidates are exhausted becomes an overpayment
// credit for the student.
func (e *AllocationEngine) Allocate(receipt *Receipt, candidates []*Invoice, opts AllocateOptions) (*AllocationOutcome, error) {
	if receipt == nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Receipt cannot be nil")
	}
	if receipt.Voided {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot allocate a voided receipt")
	}
	remaining := receipt.UnallocatedAmount()
	if !remaining.IsPositive() {
		return nil, shared.NewDomainError("NO_UNALLOCATED", "Receipt has no unallocated amount")
	}

	open := make([]*Invoice, 0, len(candidates))
	for _, inv := range candidates {
		if inv.StudentID == receipt.StudentID && inv.IsOpen() {
			open = append(open, inv)
		}
	}
	sortOldestFirst(open)
	if opts.TargetInvoiceID != uuid.Nil {
		for i, inv := range open {
			if inv.ID == opts.TargetInvoiceID {
				open = append([]*Invoice{inv}, append(open[:i:i], open[i+1:]...)...)
				break
			}
		}
	}

	outcome := &AllocationOutcome{
		Allocations:  make([]Allocation, 0, len(open)),
		UpdatedIDs:   make([]uuid.UUID, 0, len(open)),
		TotalApplied: valueobject.ZeroMoney(),
	}

	for _, inv := range open {
		if !remaining.IsPositive() {
			break
		}
		applied := remaining.Min(inv.Outstanding())
		if !applied.IsPositive() {
			continue
		}

		allocation, err := receipt.Allocate(inv.ID, inv.InvoiceNumber, applied, receipt.PaymentDate)
		if err != nil {
			return nil, err
		}
		if err := inv.ApplyAllocation(applied); err != nil {
			return nil, fmt.Errorf("failed to apply allocation to invoice %s: %w", inv.InvoiceNumber, err)
		}

		outcome.Allocations = append(outcome.Allocations, *allocation)
		outcome.UpdatedIDs = append(outcome.UpdatedIDs, inv.ID)
		outcome.TotalApplied = outcome.TotalApplied.Add(applied)
		remaining = remaining.Subtract(applied)
	}

	if remaining.IsPositive() {
		credit, err := NewOverpaymentCredit(
			receipt.StudentID,
			receipt.ID,
			remaining,
			receipt.PaymentDate,
			fmt.Sprintf("Overpayment on receipt %s", receipt.ReceiptNumber),
		)
		if err != nil {
			return nil, err
		}
		outcome.CreditCreated = credit
	}

	return outcome, nil
}

// ApplyCredit consumes part of a student's existing credit balance against
// an open invoice, emitting an APPLICATION transaction.
func (e *AllocationEngine) ApplyCredit(
	invoice *Invoice,
	amount valueobject.Money,
	available valueobject.Money,
	on valueobject.Date,
) (*CreditTransaction, error) {
	if invoice == nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Invoice cannot be nil")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Credit application amount must be positive")
	}
	if amount.GreaterThan(available) {
		return nil, shared.NewDomainError("INSUFFICIENT_CREDIT",
			fmt.Sprintf("Credit application %s exceeds available credit %s", amount, available))
	}
	if err := invoice.ApplyAllocation(amount); err != nil {
		return nil, err
	}
	return NewCreditApplication(
		invoice.StudentID,
		invoice.ID,
		amount,
		on,
		fmt.Sprintf("Credit applied to invoice %s", invoice.InvoiceNumber),
	)
}

// ReverseReceipt undoes everything a receipt did: every active allocation
// is restored onto its invoice and every credit the receipt created gets a
// reversal row. The whole operation fails without touching anything when
// the receipt's credit was already consumed by a later application
// (ReversalConflictError) - those applications must be resolved by a human
// first.
func (e *AllocationEngine) ReverseReceipt(
	receipt *Receipt,
	invoicesByID map[uuid.UUID]*Invoice,
	studentCredits []CreditTransaction,
	on valueobject.Date,
) (*ReversalOutcome, error) {
	if receipt == nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Receipt cannot be nil")
	}

	// Credits this receipt created that have not yet been reversed
	creditsToReverse := make([]CreditTransaction, 0, 1)
	for i := range studentCredits {
		c := studentCredits[i]
		if c.Type == CreditTypeCredit && c.SourceReceiptID != nil && *c.SourceReceiptID == receipt.ID {
			alreadyReversed := false
			for j := range studentCredits {
				if studentCredits[j].IsReversalOf(c.ID) {
					alreadyReversed = true
					break
				}
			}
			if !alreadyReversed {
				creditsToReverse = append(creditsToReverse, c)
			}
		}
	}

	toReverse := valueobject.ZeroMoney()
	for i := range creditsToReverse {
		toReverse = toReverse.Add(creditsToReverse[i].Amount)
	}

	// The credit can only be unwound if nothing has consumed it since.
	if toReverse.IsPositive() {
		available := CreditBalance(studentCredits)
		if available.LessThan(toReverse) {
			conflicts := make([]uuid.UUID, 0)
			for i := range studentCredits {
				if studentCredits[i].Type == CreditTypeApplication {
					conflicts = append(conflicts, studentCredits[i].ID)
				}
			}
			return nil, &ReversalConflictError{
				ReceiptNumber:           receipt.ReceiptNumber,
				CreditToReverse:         toReverse,
				AvailableCredit:         available,
				ConflictingApplications: conflicts,
			}
		}
	}

	// Validate every touched invoice exists and can take the restore
	// before mutating anything: the reversal is all-or-nothing.
	for _, alloc := range receipt.ActiveAllocations() {
		inv := invoicesByID[alloc.InvoiceID]
		if inv == nil {
			return nil, shared.NewDomainError("NOT_FOUND",
				fmt.Sprintf("Invoice %s referenced by receipt %s is not in the snapshot", alloc.InvoiceNumber, receipt.ReceiptNumber))
		}
	}

	outcome := &ReversalOutcome{
		RestoredAllocations: make([]Allocation, 0, len(receipt.Allocations)),
		RestoredIDs:         make([]uuid.UUID, 0, len(receipt.Allocations)),
		CreditReversals:     make([]CreditTransaction, 0, len(creditsToReverse)),
		TotalRestored:       valueobject.ZeroMoney(),
	}

	for _, alloc := range receipt.ReverseAllocations() {
		inv := invoicesByID[alloc.InvoiceID]
		// Voided invoices keep the reversed allocation for audit but their
		// balance is no longer active math.
		if !inv.IsVoided() {
			if err := inv.ReleaseAllocation(alloc.AmountApplied); err != nil {
				return nil, err
			}
			outcome.RestoredIDs = append(outcome.RestoredIDs, inv.ID)
		}
		outcome.RestoredAllocations = append(outcome.RestoredAllocations, alloc)
		outcome.TotalRestored = outcome.TotalRestored.Add(alloc.AmountApplied)
	}

	for i := range creditsToReverse {
		reversal, err := NewCreditReversal(&creditsToReverse[i], on,
			fmt.Sprintf("Reversal of overpayment credit from voided receipt %s", receipt.ReceiptNumber))
		if err != nil {
			return nil, err
		}
		outcome.CreditReversals = append(outcome.CreditReversals, *reversal)
	}

	return outcome, nil
}
