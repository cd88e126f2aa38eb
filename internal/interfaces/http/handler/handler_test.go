package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appbilling "github.com/schoolpay/backend/internal/application/billing"
	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/schoolpay/backend/internal/infrastructure/config"
	"github.com/schoolpay/backend/internal/infrastructure/persistence"
	"github.com/schoolpay/backend/internal/interfaces/http/middleware"
	"github.com/schoolpay/backend/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// testServer wires the full stack over an in-memory database so the
// handlers are exercised the way a running server exercises them.
type testServer struct {
	engine     *gin.Engine
	db         *persistence.Database
	creditRepo billing.CreditRepository

	student    *billing.Student
	enrollment *billing.Enrollment
	tuition    *billing.FeeItem
	boarding   *billing.FeeItem
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         "file:" + uuid.New().String() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	receiptRepo := persistence.NewGormReceiptRepository(db.DB)
	creditRepo := persistence.NewGormCreditRepository(db.DB)
	studentRepo := persistence.NewGormStudentRepository(db.DB)
	enrollmentRepo := persistence.NewGormEnrollmentRepository(db.DB)
	feeRepo := persistence.NewGormFeeRepository(db.DB)
	loader := persistence.NewGormSnapshotLoader(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)
	log := zap.NewNop()

	engine := gin.New()
	router.NewRouter(engine).
		Register(NewInvoiceHandler(appbilling.NewBillingService(invoiceRepo, studentRepo, enrollmentRepo, feeRepo, log))).
		Register(NewPaymentHandler(appbilling.NewPaymentService(receiptRepo, invoiceRepo, creditRepo, studentRepo, uow, log))).
		Register(NewLedgerHandler(appbilling.NewLedgerService(loader))).
		Register(NewReportHandler(appbilling.NewReportService(loader, log))).
		Register(NewAuditHandler(appbilling.NewAuditService(loader, invoiceRepo, receiptRepo, creditRepo, log))).
		Setup()

	ts := &testServer{engine: engine, db: db, creditRepo: creditRepo}
	ts.seed(t, studentRepo, enrollmentRepo, feeRepo)
	return ts
}

func (ts *testServer) seed(
	t *testing.T,
	studentRepo billing.StudentRepository,
	enrollmentRepo billing.EnrollmentRepository,
	feeRepo billing.FeeRepository,
) {
	t.Helper()
	ctx := context.Background()

	student, err := billing.NewStudent("ADM-001", "Amina Okoro", billing.ResidenceBoarder)
	require.NoError(t, err)
	require.NoError(t, studentRepo.Save(ctx, student))

	enrollment, err := billing.NewEnrollment(student.ID, student.FullName, "Form 1A", "2026-T1", 2026, billing.ResidenceBoarder)
	require.NoError(t, err)
	require.NoError(t, enrollmentRepo.Save(ctx, enrollment))

	tuition, err := billing.NewFeeItem("Tuition", billing.FeeCategoryTuition, valueobject.MustMoneyFromString("800.00"), "2026-T1", true)
	require.NoError(t, err)
	require.NoError(t, feeRepo.Save(ctx, tuition))

	boarding, err := billing.NewFeeItem("Boarding", billing.FeeCategoryBoarding, valueobject.MustMoneyFromString("200.00"), "2026-T1", false)
	require.NoError(t, err)
	require.NoError(t, feeRepo.Save(ctx, boarding))

	ts.student = student
	ts.enrollment = enrollment
	ts.tuition = tuition
	ts.boarding = boarding
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)

	var envelope map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w, envelope
}

func (ts *testServer) issueInvoice(t *testing.T) map[string]any {
	t.Helper()
	w, envelope := ts.do(t, "POST", "/api/v1/invoices", gin.H{
		"student_id":    ts.student.ID.String(),
		"enrollment_id": ts.enrollment.ID.String(),
		"fee_ids":       []string{ts.tuition.ID.String(), ts.boarding.ID.String()},
		"issue_date":    "2026-01-10",
		"due_date":      "2026-02-10",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return envelope["data"].(map[string]any)
}

func TestIssueInvoiceEndpoint(t *testing.T) {
	ts := newTestServer(t)

	data := ts.issueInvoice(t)
	assert.Regexp(t, `^INV-\d{4}-\d{4}$`, data["invoice_number"])
	assert.Equal(t, "1000.00", data["total_bill"])
	assert.Equal(t, "1000.00", data["balance"])
	assert.Equal(t, "PENDING", data["status"])

	t.Run("unknown student is a 404", func(t *testing.T) {
		w, envelope := ts.do(t, "POST", "/api/v1/invoices", gin.H{
			"student_id":    uuid.New().String(),
			"enrollment_id": ts.enrollment.ID.String(),
			"fee_ids":       []string{ts.tuition.ID.String()},
			"issue_date":    "2026-01-10",
			"due_date":      "2026-02-10",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
		errInfo := envelope["error"].(map[string]any)
		assert.Equal(t, "STUDENT_NOT_FOUND", errInfo["code"])
	})

	t.Run("missing fee ids is a 400", func(t *testing.T) {
		w, _ := ts.do(t, "POST", "/api/v1/invoices", gin.H{
			"student_id":    ts.student.ID.String(),
			"enrollment_id": ts.enrollment.ID.String(),
			"issue_date":    "2026-01-10",
			"due_date":      "2026-02-10",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRecordPaymentEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.issueInvoice(t)

	w, envelope := ts.do(t, "POST", "/api/v1/receipts", gin.H{
		"student_id":     ts.student.ID.String(),
		"amount":         "600.00",
		"payment_method": "CASH",
		"payment_date":   "2026-01-15",
		"reference":      "slip 441",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := envelope["data"].(map[string]any)
	assert.Regexp(t, `^RCT-\d{4}-\d{4}$`, data["receipt_number"])
	assert.Equal(t, "600.00", data["total_applied"])
	assert.Nil(t, data["credit_created"])

	t.Run("overpayment becomes credit", func(t *testing.T) {
		w, envelope := ts.do(t, "POST", "/api/v1/receipts", gin.H{
			"student_id":     ts.student.ID.String(),
			"amount":         "500.00",
			"payment_method": "BANK_TRANSFER",
			"payment_date":   "2026-01-20",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		data := envelope["data"].(map[string]any)
		assert.Equal(t, "400.00", data["total_applied"])
		credit := data["credit_created"].(map[string]any)
		assert.Equal(t, "100.00", credit["amount"])

		w, envelope = ts.do(t, "GET", fmt.Sprintf("/api/v1/students/%s/credit", ts.student.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		creditData := envelope["data"].(map[string]any)
		assert.Equal(t, "100.00", creditData["balance"])
		assert.Len(t, creditData["history"], 1)
	})

	t.Run("bad payment method is a 400", func(t *testing.T) {
		w, _ := ts.do(t, "POST", "/api/v1/receipts", gin.H{
			"student_id":     ts.student.ID.String(),
			"amount":         "50.00",
			"payment_method": "BARTER",
			"payment_date":   "2026-01-20",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStudentLedgerEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.issueInvoice(t)

	w, _ := ts.do(t, "POST", "/api/v1/receipts", gin.H{
		"student_id":     ts.student.ID.String(),
		"amount":         "600.00",
		"payment_method": "CASH",
		"payment_date":   "2026-01-15",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, envelope := ts.do(t, "GET", fmt.Sprintf("/api/v1/students/%s/ledger", ts.student.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := envelope["data"].(map[string]any)
	assert.Equal(t, "Amina Okoro", data["student_name"])
	assert.Equal(t, "1000.00", data["total_billed"])
	assert.Equal(t, "600.00", data["total_paid"])
	assert.Equal(t, "400.00", data["balance"])
	assert.Len(t, data["entries"], 2)

	t.Run("unknown student is a 404", func(t *testing.T) {
		w, _ := ts.do(t, "GET", fmt.Sprintf("/api/v1/students/%s/ledger", uuid.New()), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id is a 400", func(t *testing.T) {
		w, _ := ts.do(t, "GET", "/api/v1/students/not-a-uuid/ledger", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestVoidReceiptEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.issueInvoice(t)

	w, envelope := ts.do(t, "POST", "/api/v1/receipts", gin.H{
		"student_id":     ts.student.ID.String(),
		"amount":         "300.00",
		"payment_method": "CASH",
		"payment_date":   "2026-01-15",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	receiptID := envelope["data"].(map[string]any)["receipt_id"].(string)

	w, _ = ts.do(t, "POST", fmt.Sprintf("/api/v1/receipts/%s/void", receiptID), gin.H{
		"reason": "keyed against wrong student",
	})
	assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w, envelope = ts.do(t, "GET", fmt.Sprintf("/api/v1/students/%s/ledger", ts.student.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "0.00", data["total_paid"])
	assert.Equal(t, "1000.00", data["balance"])

	t.Run("voiding twice conflicts", func(t *testing.T) {
		w, _ := ts.do(t, "POST", fmt.Sprintf("/api/v1/receipts/%s/void", receiptID), gin.H{
			"reason": "again",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestVoidReceiptReversalConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.issueInvoice(t)

	// Overpay so the receipt creates credit, then consume most of the
	// credit so the void has nothing left to reverse.
	w, envelope := ts.do(t, "POST", "/api/v1/receipts", gin.H{
		"student_id":     ts.student.ID.String(),
		"amount":         "1200.00",
		"payment_method": "BANK_TRANSFER",
		"payment_date":   "2026-01-15",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	receiptID := envelope["data"].(map[string]any)["receipt_id"].(string)

	application, err := billing.NewCreditApplication(
		ts.student.ID, uuid.New(), valueobject.MustMoneyFromString("150.00"),
		valueobject.MustParseDate("2026-01-20"), "Credit applied to next term")
	require.NoError(t, err)
	require.NoError(t, ts.creditRepo.Append(context.Background(), application))

	w, envelope = ts.do(t, "POST", fmt.Sprintf("/api/v1/receipts/%s/void", receiptID), gin.H{
		"reason": "bounced transfer",
	})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	errInfo := envelope["error"].(map[string]any)
	assert.Equal(t, "REVERSAL_CONFLICT", errInfo["code"])
	details := errInfo["details"].(map[string]any)
	assert.Equal(t, "200.00", details["credit_to_reverse"])
	assert.Equal(t, "50.00", details["available_credit"])
	assert.NotEmpty(t, details["conflicting_applications"])
}

func TestReportEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.issueInvoice(t)

	w, _ := ts.do(t, "POST", "/api/v1/receipts", gin.H{
		"student_id":     ts.student.ID.String(),
		"amount":         "250.00",
		"payment_method": "CASH",
		"payment_date":   "2026-01-15",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Run("aged debtors", func(t *testing.T) {
		w, envelope := ts.do(t, "GET", "/api/v1/reports/aged-debtors?as_of=2026-03-15", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := envelope["data"].(map[string]any)
		assert.Equal(t, "750.00", data["total"])
	})

	t.Run("aged debtors rejects bad residence", func(t *testing.T) {
		w, _ := ts.do(t, "GET", "/api/v1/reports/aged-debtors?residence=LODGER", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("outstanding fees", func(t *testing.T) {
		w, envelope := ts.do(t, "GET", "/api/v1/reports/outstanding-fees?term=2026-T1", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := envelope["data"].(map[string]any)
		assert.Equal(t, "750.00", data["total"])
	})

	t.Run("fees collection", func(t *testing.T) {
		w, envelope := ts.do(t, "GET", "/api/v1/reports/fees-collection?start=2026-01-01&end=2026-01-31", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := envelope["data"].(map[string]any)
		assert.Equal(t, "250.00", data["total"])
	})

	t.Run("fees collection requires a window", func(t *testing.T) {
		w, _ := ts.do(t, "GET", "/api/v1/reports/fees-collection?start=2026-01-01", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reconciliation", func(t *testing.T) {
		w, envelope := ts.do(t, "GET", "/api/v1/reports/reconciliation/2026-T1", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := envelope["data"].(map[string]any)
		assert.Equal(t, "2026-T1", data["term_id"])
	})
}

func TestAuditEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.issueInvoice(t)

	w, envelope := ts.do(t, "POST", "/api/v1/audit/run", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := envelope["data"].(map[string]any)
	assert.Empty(t, data["findings"])
	assert.Equal(t, float64(1), data["invoices_checked"])

	t.Run("repair dry run", func(t *testing.T) {
		w, envelope := ts.do(t, "POST", "/api/v1/audit/repair", gin.H{
			"check_kind": "INVOICE_BALANCE",
			"dry_run":    true,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := envelope["data"].(map[string]any)
		assert.Equal(t, true, data["dry_run"])
	})

	t.Run("unknown check kind is a 400", func(t *testing.T) {
		w, envelope := ts.do(t, "POST", "/api/v1/audit/repair", gin.H{
			"check_kind": "EVERYTHING",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		errInfo := envelope["error"].(map[string]any)
		assert.Equal(t, "INVALID_CHECK", errInfo["code"])
	})
}
