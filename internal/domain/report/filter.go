package report

import (
	"fmt"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// FilterKind tags the concrete filter types so handlers can validate what
// a report accepts before building it
type FilterKind string

const (
	FilterKindClass     FilterKind = "CLASS"
	FilterKindResidence FilterKind = "RESIDENCE"
	FilterKindDateRange FilterKind = "DATE_RANGE"
	FilterKindTerm      FilterKind = "TERM"
)

// Filter narrows the invoice set a report is built over
type Filter interface {
	Kind() FilterKind
	Validate() error
}

// ClassFilter keeps invoices whose enrollment label starts with the class name
type ClassFilter struct {
	ClassName string
}

// Kind returns the filter kind tag
func (f ClassFilter) Kind() FilterKind { return FilterKindClass }

// Validate checks the filter is well formed
func (f ClassFilter) Validate() error {
	if f.ClassName == "" {
		return shared.NewDomainError("INVALID_FILTER", "Class filter requires a class name")
	}
	return nil
}

// ResidenceFilter keeps invoices of students with the given residence
type ResidenceFilter struct {
	Residence billing.Residence
}

// Kind returns the filter kind tag
func (f ResidenceFilter) Kind() FilterKind { return FilterKindResidence }

// Validate checks the filter is well formed
func (f ResidenceFilter) Validate() error {
	if !f.Residence.IsValid() {
		return shared.NewDomainError("INVALID_FILTER", fmt.Sprintf("Unknown residence %q", f.Residence))
	}
	return nil
}

// DateRangeFilter keeps documents dated within [Start, End], inclusive
type DateRangeFilter struct {
	Start valueobject.Date
	End   valueobject.Date
}

// Kind returns the filter kind tag
func (f DateRangeFilter) Kind() FilterKind { return FilterKindDateRange }

// Validate checks the filter is well formed
func (f DateRangeFilter) Validate() error {
	if f.Start.IsZero() || f.End.IsZero() {
		return shared.NewDomainError("INVALID_FILTER", "Date range filter requires both start and end")
	}
	if f.End.Before(f.Start) {
		return shared.NewDomainError("INVALID_FILTER", "Date range end cannot precede start")
	}
	return nil
}

// Contains reports whether the date falls inside the range
func (f DateRangeFilter) Contains(d valueobject.Date) bool {
	return !d.Before(f.Start) && !d.After(f.End)
}

// TermFilter keeps invoices issued for the given term
type TermFilter struct {
	TermID string
}

// Kind returns the filter kind tag
func (f TermFilter) Kind() FilterKind { return FilterKindTerm }

// Validate checks the filter is well formed
func (f TermFilter) Validate() error {
	if f.TermID == "" {
		return shared.NewDomainError("INVALID_FILTER", "Term filter requires a term ID")
	}
	return nil
}

// ValidateFilters validates every filter and rejects kinds the report does
// not accept
func ValidateFilters(filters []Filter, accepted ...FilterKind) error {
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return err
		}
		ok := false
		for _, k := range accepted {
			if f.Kind() == k {
				ok = true
				break
			}
		}
		if !ok {
			return shared.NewDomainError("INVALID_FILTER", fmt.Sprintf("Filter kind %s is not accepted by this report", f.Kind()))
		}
	}
	return nil
}

// invoiceMatches applies all filters to one invoice in its snapshot context
func invoiceMatches(snap *billing.Snapshot, inv *billing.Invoice, filters []Filter) bool {
	for _, f := range filters {
		switch ff := f.(type) {
		case ClassFilter:
			if !hasClassPrefix(inv.EnrollmentName, ff.ClassName) {
				return false
			}
		case ResidenceFilter:
			if snap.ResidenceForStudent(inv.StudentID) != ff.Residence {
				return false
			}
		case DateRangeFilter:
			if !ff.Contains(inv.IssueDate) {
				return false
			}
		case TermFilter:
			if inv.TermID != ff.TermID {
				return false
			}
		}
	}
	return true
}

// hasClassPrefix matches "Form 2 East - 2026-T1" against class "Form 2 East"
func hasClassPrefix(enrollmentName, className string) bool {
	if len(enrollmentName) < len(className) {
		return false
	}
	return enrollmentName[:len(className)] == className
}
