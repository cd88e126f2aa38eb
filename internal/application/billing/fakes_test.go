package billing

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// In-memory fakes for the repository interfaces. They keep aggregates by
// value so tests exercise the same copy-on-load behavior a database gives.

type fakeInvoiceRepo struct {
	invoices  map[uuid.UUID]billing.Invoice
	seq       int
	conflicts int // SaveWithLock fails this many times before succeeding
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[uuid.UUID]billing.Invoice)}
}

func (r *fakeInvoiceRepo) put(inv *billing.Invoice) {
	r.invoices[inv.ID] = *inv
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	if inv, ok := r.invoices[id]; ok {
		copied := inv
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeInvoiceRepo) FindByInvoiceNumber(_ context.Context, number string) (*billing.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.InvoiceNumber == number {
			copied := inv
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeInvoiceRepo) FindAll(_ context.Context, _ billing.InvoiceFilter) ([]billing.Invoice, error) {
	return r.all(), nil
}

func (r *fakeInvoiceRepo) FindByStudent(_ context.Context, studentID uuid.UUID) ([]billing.Invoice, error) {
	out := make([]billing.Invoice, 0)
	for _, inv := range r.all() {
		if inv.StudentID == studentID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) FindOpenByStudent(ctx context.Context, studentID uuid.UUID) ([]billing.Invoice, error) {
	all, _ := r.FindByStudent(ctx, studentID)
	out := make([]billing.Invoice, 0)
	for _, inv := range all {
		if inv.IsOpen() {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) FindByTerm(_ context.Context, termID string) ([]billing.Invoice, error) {
	out := make([]billing.Invoice, 0)
	for _, inv := range r.all() {
		if inv.TermID == termID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) Save(_ context.Context, inv *billing.Invoice) error {
	r.invoices[inv.ID] = *inv
	return nil
}

func (r *fakeInvoiceRepo) SaveWithLock(_ context.Context, inv *billing.Invoice) error {
	if r.conflicts > 0 {
		r.conflicts--
		return shared.ErrConcurrencyConflict
	}
	r.invoices[inv.ID] = *inv
	return nil
}

func (r *fakeInvoiceRepo) Count(_ context.Context, _ billing.InvoiceFilter) (int64, error) {
	return int64(len(r.invoices)), nil
}

func (r *fakeInvoiceRepo) ExistsByInvoiceNumber(_ context.Context, number string) (bool, error) {
	inv, _ := r.FindByInvoiceNumber(context.Background(), number)
	return inv != nil, nil
}

func (r *fakeInvoiceRepo) GenerateInvoiceNumber(_ context.Context) (string, error) {
	r.seq++
	return fmt.Sprintf("INV-2026-%04d", r.seq), nil
}

func (r *fakeInvoiceRepo) all() []billing.Invoice {
	out := make([]billing.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNumber < out[j].InvoiceNumber })
	return out
}

// fakeUnitOfWork counts executions and failures. It cannot undo writes the
// way a database transaction does, so tests assert on the failure count and
// on which repositories were touched before the error.
type fakeUnitOfWork struct {
	executed int
	failed   int
}

func (u *fakeUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	u.executed++
	if err := fn(ctx); err != nil {
		u.failed++
		return err
	}
	return nil
}

type fakeReceiptRepo struct {
	receipts map[uuid.UUID]billing.Receipt
	seq      int
	saveErr  error // Save fails with this when set
}

func newFakeReceiptRepo() *fakeReceiptRepo {
	return &fakeReceiptRepo{receipts: make(map[uuid.UUID]billing.Receipt)}
}

func (r *fakeReceiptRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Receipt, error) {
	if rcpt, ok := r.receipts[id]; ok {
		copied := rcpt
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeReceiptRepo) FindByReceiptNumber(_ context.Context, number string) (*billing.Receipt, error) {
	for _, rcpt := range r.receipts {
		if rcpt.ReceiptNumber == number {
			copied := rcpt
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeReceiptRepo) FindAll(_ context.Context, _ billing.ReceiptFilter) ([]billing.Receipt, error) {
	return r.all(), nil
}

func (r *fakeReceiptRepo) FindByStudent(_ context.Context, studentID uuid.UUID) ([]billing.Receipt, error) {
	out := make([]billing.Receipt, 0)
	for _, rcpt := range r.all() {
		if rcpt.StudentID == studentID {
			out = append(out, rcpt)
		}
	}
	return out, nil
}

func (r *fakeReceiptRepo) Save(_ context.Context, rcpt *billing.Receipt) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.receipts[rcpt.ID] = *rcpt
	return nil
}

func (r *fakeReceiptRepo) SaveWithLock(_ context.Context, rcpt *billing.Receipt) error {
	r.receipts[rcpt.ID] = *rcpt
	return nil
}

func (r *fakeReceiptRepo) Count(_ context.Context, _ billing.ReceiptFilter) (int64, error) {
	return int64(len(r.receipts)), nil
}

func (r *fakeReceiptRepo) ExistsByReceiptNumber(_ context.Context, number string) (bool, error) {
	rcpt, _ := r.FindByReceiptNumber(context.Background(), number)
	return rcpt != nil, nil
}

func (r *fakeReceiptRepo) GenerateReceiptNumber(_ context.Context) (string, error) {
	r.seq++
	return fmt.Sprintf("RCT-2026-%04d", r.seq), nil
}

func (r *fakeReceiptRepo) all() []billing.Receipt {
	out := make([]billing.Receipt, 0, len(r.receipts))
	for _, rcpt := range r.receipts {
		out = append(out, rcpt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceiptNumber < out[j].ReceiptNumber })
	return out
}

type fakeCreditRepo struct {
	credits []billing.CreditTransaction
}

func newFakeCreditRepo() *fakeCreditRepo {
	return &fakeCreditRepo{credits: make([]billing.CreditTransaction, 0)}
}

func (r *fakeCreditRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.CreditTransaction, error) {
	for i := range r.credits {
		if r.credits[i].ID == id {
			copied := r.credits[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeCreditRepo) FindByStudent(_ context.Context, studentID uuid.UUID) ([]billing.CreditTransaction, error) {
	out := make([]billing.CreditTransaction, 0)
	for i := range r.credits {
		if r.credits[i].StudentID == studentID {
			out = append(out, r.credits[i])
		}
	}
	return out, nil
}

func (r *fakeCreditRepo) FindByReceipt(_ context.Context, receiptID uuid.UUID) ([]billing.CreditTransaction, error) {
	out := make([]billing.CreditTransaction, 0)
	for i := range r.credits {
		if r.credits[i].SourceReceiptID != nil && *r.credits[i].SourceReceiptID == receiptID {
			out = append(out, r.credits[i])
		}
	}
	return out, nil
}

func (r *fakeCreditRepo) Append(_ context.Context, txns ...*billing.CreditTransaction) error {
	for _, txn := range txns {
		r.credits = append(r.credits, *txn)
	}
	return nil
}

func (r *fakeCreditRepo) BalanceForStudent(ctx context.Context, studentID uuid.UUID) (valueobject.Money, error) {
	txns, _ := r.FindByStudent(ctx, studentID)
	return billing.CreditBalance(txns), nil
}

type fakeStudentRepo struct {
	students map[uuid.UUID]billing.Student
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{students: make(map[uuid.UUID]billing.Student)}
}

func (r *fakeStudentRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Student, error) {
	if st, ok := r.students[id]; ok {
		copied := st
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeStudentRepo) FindByAdmissionNumber(_ context.Context, number string) (*billing.Student, error) {
	for _, st := range r.students {
		if st.AdmissionNumber == number {
			copied := st
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeStudentRepo) FindAll(_ context.Context, _ shared.Filter) ([]billing.Student, error) {
	out := make([]billing.Student, 0, len(r.students))
	for _, st := range r.students {
		out = append(out, st)
	}
	return out, nil
}

func (r *fakeStudentRepo) Save(_ context.Context, st *billing.Student) error {
	r.students[st.ID] = *st
	return nil
}

type fakeEnrollmentRepo struct {
	enrollments map[uuid.UUID]billing.Enrollment
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{enrollments: make(map[uuid.UUID]billing.Enrollment)}
}

func (r *fakeEnrollmentRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Enrollment, error) {
	if e, ok := r.enrollments[id]; ok {
		copied := e
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeEnrollmentRepo) FindByTerm(_ context.Context, termID string) ([]billing.Enrollment, error) {
	out := make([]billing.Enrollment, 0)
	for _, e := range r.enrollments {
		if e.TermID == termID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) FindByStudent(_ context.Context, studentID uuid.UUID) ([]billing.Enrollment, error) {
	out := make([]billing.Enrollment, 0)
	for _, e := range r.enrollments {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) FindByStudentTerm(_ context.Context, studentID uuid.UUID, termID string) (*billing.Enrollment, error) {
	for _, e := range r.enrollments {
		if e.StudentID == studentID && e.TermID == termID {
			copied := e
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeEnrollmentRepo) Save(_ context.Context, e *billing.Enrollment) error {
	r.enrollments[e.ID] = *e
	return nil
}

type fakeFeeRepo struct {
	fees map[uuid.UUID]billing.FeeItem
}

func newFakeFeeRepo() *fakeFeeRepo {
	return &fakeFeeRepo{fees: make(map[uuid.UUID]billing.FeeItem)}
}

func (r *fakeFeeRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.FeeItem, error) {
	if f, ok := r.fees[id]; ok {
		copied := f
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeFeeRepo) FindByTerm(_ context.Context, termID string) ([]billing.FeeItem, error) {
	out := make([]billing.FeeItem, 0)
	for _, f := range r.fees {
		if f.TermID == termID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFeeRepo) Save(_ context.Context, f *billing.FeeItem) error {
	r.fees[f.ID] = *f
	return nil
}

// fakeLoader assembles snapshots from the other fakes
type fakeLoader struct {
	invoiceRepo    *fakeInvoiceRepo
	receiptRepo    *fakeReceiptRepo
	creditRepo     *fakeCreditRepo
	studentRepo    *fakeStudentRepo
	enrollmentRepo *fakeEnrollmentRepo
	feeRepo        *fakeFeeRepo
}

func (l *fakeLoader) Load(ctx context.Context) (*billing.Snapshot, error) {
	students, _ := l.studentRepo.FindAll(ctx, shared.Filter{})
	enrollments := make([]billing.Enrollment, 0)
	for _, e := range l.enrollmentRepo.enrollments {
		enrollments = append(enrollments, e)
	}
	fees := make([]billing.FeeItem, 0)
	for _, f := range l.feeRepo.fees {
		fees = append(fees, f)
	}
	return billing.NewSnapshot(
		l.invoiceRepo.all(),
		l.receiptRepo.all(),
		append([]billing.CreditTransaction(nil), l.creditRepo.credits...),
		enrollments,
		students,
		fees,
	), nil
}

func (l *fakeLoader) LoadForStudent(ctx context.Context, _ uuid.UUID) (*billing.Snapshot, error) {
	return l.Load(ctx)
}

func (l *fakeLoader) LoadForTerm(ctx context.Context, _ string) (*billing.Snapshot, error) {
	return l.Load(ctx)
}
