package report

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// AgeBucket classifies how long an invoice has been overdue
type AgeBucket string

const (
	BucketCurrent AgeBucket = "CURRENT" // Not yet past due
	Bucket1To30   AgeBucket = "1-30"
	Bucket31To60  AgeBucket = "31-60"
	Bucket61To90  AgeBucket = "61-90"
	Bucket90Plus  AgeBucket = "90+"
)

// AgeBuckets lists the buckets in display order
var AgeBuckets = []AgeBucket{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, Bucket90Plus}

// String returns the string representation
func (b AgeBucket) String() string {
	return string(b)
}

// ClassifyAge maps whole days overdue to an age bucket. The named upper
// bound of each bucket is inclusive: day 30 is 1-30, day 31 is 31-60.
func ClassifyAge(daysOverdue int) AgeBucket {
	switch {
	case daysOverdue <= 0:
		return BucketCurrent
	case daysOverdue <= 30:
		return Bucket1To30
	case daysOverdue <= 60:
		return Bucket31To60
	case daysOverdue <= 90:
		return Bucket61To90
	default:
		return Bucket90Plus
	}
}

// AgedDebtorRow is one open invoice in the aged debtors report
type AgedDebtorRow struct {
	InvoiceID     uuid.UUID         `json:"invoice_id"`
	InvoiceNumber string            `json:"invoice_number"`
	StudentID     uuid.UUID         `json:"student_id"`
	StudentName   string            `json:"student_name"`
	Enrollment    string            `json:"enrollment"`
	Residence     billing.Residence `json:"residence"`
	DueDate       valueobject.Date  `json:"due_date"`
	DaysOverdue   int               `json:"days_overdue"`
	Bucket        AgeBucket         `json:"bucket"`
	Outstanding   valueobject.Money `json:"outstanding"`
}

// AgedDebtorsReport breaks outstanding balances down by how long they have
// been owed
type AgedDebtorsReport struct {
	AsOf               valueobject.Date              `json:"as_of"`
	Buckets            map[AgeBucket]valueobject.Money `json:"buckets"`
	ByClass            map[string]valueobject.Money  `json:"by_class"`
	ByResidence        map[string]valueobject.Money  `json:"by_residence"`
	Rows               []AgedDebtorRow               `json:"rows"`
	Total              valueobject.Money             `json:"total"`
	InvoiceCount       int                           `json:"invoice_count"`
	CriticalCount      int                           `json:"critical_count"` // Invoices in the 90+ bucket
	AverageDaysOverdue decimal.Decimal               `json:"average_days_overdue"`
}

// BuildAgedDebtorsReport builds the aged debtors report over open,
// non-voided invoices as of the given date. Accepts class and residence
// filters.
func BuildAgedDebtorsReport(snap *billing.Snapshot, asOf valueobject.Date, filters ...Filter) (*AgedDebtorsReport, error) {
	if snap == nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Snapshot is required")
	}
	if asOf.IsZero() {
		asOf = valueobject.Today()
	}
	if err := ValidateFilters(filters, FilterKindClass, FilterKindResidence); err != nil {
		return nil, err
	}

	r := &AgedDebtorsReport{
		AsOf:        asOf,
		Buckets:     make(map[AgeBucket]valueobject.Money, len(AgeBuckets)),
		ByClass:     make(map[string]valueobject.Money),
		ByResidence: make(map[string]valueobject.Money),
		Rows:        make([]AgedDebtorRow, 0),
		Total:       valueobject.ZeroMoney(),
	}
	for _, b := range AgeBuckets {
		r.Buckets[b] = valueobject.ZeroMoney()
	}

	totalDays := 0
	for _, inv := range snap.ActiveInvoices() {
		if !inv.IsOpen() {
			continue
		}
		if !invoiceMatches(snap, inv, filters) {
			continue
		}

		days := inv.DaysOverdue(asOf)
		bucket := ClassifyAge(days)
		outstanding := inv.Outstanding()
		residence := snap.ResidenceForStudent(inv.StudentID)

		r.Rows = append(r.Rows, AgedDebtorRow{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			StudentID:     inv.StudentID,
			StudentName:   inv.StudentName,
			Enrollment:    inv.EnrollmentName,
			Residence:     residence,
			DueDate:       inv.DueDate,
			DaysOverdue:   days,
			Bucket:        bucket,
			Outstanding:   outstanding,
		})

		r.Buckets[bucket] = r.Buckets[bucket].Add(outstanding)
		r.ByClass[inv.EnrollmentName] = r.ByClass[inv.EnrollmentName].Add(outstanding)
		if residence != "" {
			r.ByResidence[residence.String()] = r.ByResidence[residence.String()].Add(outstanding)
		}
		r.Total = r.Total.Add(outstanding)
		r.InvoiceCount++
		totalDays += days
		if bucket == Bucket90Plus {
			r.CriticalCount++
		}
	}

	if r.InvoiceCount > 0 {
		r.AverageDaysOverdue = decimal.NewFromInt(int64(totalDays)).
			Div(decimal.NewFromInt(int64(r.InvoiceCount))).Round(1)
	}

	sort.SliceStable(r.Rows, func(i, j int) bool {
		if r.Rows[i].DaysOverdue != r.Rows[j].DaysOverdue {
			return r.Rows[i].DaysOverdue > r.Rows[j].DaysOverdue
		}
		return r.Rows[i].InvoiceNumber < r.Rows[j].InvoiceNumber
	})

	return r, nil
}
