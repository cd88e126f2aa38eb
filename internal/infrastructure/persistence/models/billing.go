package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
// Line items are serialized as a JSON document rather than a child table;
// they are value objects that always load and save with the invoice.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber  string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	StudentID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	StudentName    string                `gorm:"type:varchar(200);not null"`
	EnrollmentID   uuid.UUID             `gorm:"type:uuid;not null;index"`
	EnrollmentName string                `gorm:"type:varchar(200)"`
	TermID         string                `gorm:"type:varchar(50);not null;index"`
	LineItems      billing.BillItems     `gorm:"type:jsonb;default:'[]'"`
	BalanceForward valueobject.Money     `gorm:"type:decimal(18,2);not null"`
	TotalBill      valueobject.Money     `gorm:"type:decimal(18,2);not null"`
	Balance        valueobject.Money     `gorm:"type:decimal(18,2);not null;index"`
	Status         billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	IssueDate      valueobject.Date      `gorm:"type:date;not null"`
	DueDate        valueobject.Date      `gorm:"type:date;not null;index"`
	VoidedAt       *time.Time
	VoidReason     string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		InvoiceNumber:     m.InvoiceNumber,
		StudentID:         m.StudentID,
		StudentName:       m.StudentName,
		EnrollmentID:      m.EnrollmentID,
		EnrollmentName:    m.EnrollmentName,
		TermID:            m.TermID,
		LineItems:         m.LineItems,
		BalanceForward:    m.BalanceForward,
		TotalBill:         m.TotalBill,
		Balance:           m.Balance,
		Status:            m.Status,
		IssueDate:         m.IssueDate,
		DueDate:           m.DueDate,
		VoidedAt:          m.VoidedAt,
		VoidReason:        m.VoidReason,
	}
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.StudentID = inv.StudentID
	m.StudentName = inv.StudentName
	m.EnrollmentID = inv.EnrollmentID
	m.EnrollmentName = inv.EnrollmentName
	m.TermID = inv.TermID
	m.LineItems = inv.LineItems
	m.BalanceForward = inv.BalanceForward
	m.TotalBill = inv.TotalBill
	m.Balance = inv.Balance
	m.Status = inv.Status
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.VoidedAt = inv.VoidedAt
	m.VoidReason = inv.VoidReason
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// ReceiptModel is the persistence model for the Receipt aggregate root.
// Allocations are serialized as a JSON document; reversed allocations are
// kept in the document for audit.
type ReceiptModel struct {
	AggregateModel
	ReceiptNumber string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	StudentID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	StudentName   string                `gorm:"type:varchar(200);not null"`
	AmountPaid    valueobject.Money     `gorm:"type:decimal(18,2);not null"`
	PaymentMethod billing.PaymentMethod `gorm:"type:varchar(20);not null;index"`
	Reference     string                `gorm:"type:varchar(100)"`
	Approved      bool                  `gorm:"not null;default:false"`
	Voided        bool                  `gorm:"not null;default:false;index"`
	PaymentDate   valueobject.Date      `gorm:"type:date;not null;index"`
	Allocations   billing.Allocations   `gorm:"type:jsonb;default:'[]'"`
	VoidedAt      *time.Time
	VoidReason    string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ReceiptModel) TableName() string {
	return "receipts"
}

// ToDomain converts the persistence model to a domain Receipt
func (m *ReceiptModel) ToDomain() *billing.Receipt {
	return &billing.Receipt{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ReceiptNumber:     m.ReceiptNumber,
		StudentID:         m.StudentID,
		StudentName:       m.StudentName,
		AmountPaid:        m.AmountPaid,
		PaymentMethod:     m.PaymentMethod,
		Reference:         m.Reference,
		Approved:          m.Approved,
		Voided:            m.Voided,
		PaymentDate:       m.PaymentDate,
		Allocations:       m.Allocations,
		VoidedAt:          m.VoidedAt,
		VoidReason:        m.VoidReason,
	}
}

// FromDomain populates the persistence model from a domain Receipt
func (m *ReceiptModel) FromDomain(r *billing.Receipt) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.ReceiptNumber = r.ReceiptNumber
	m.StudentID = r.StudentID
	m.StudentName = r.StudentName
	m.AmountPaid = r.AmountPaid
	m.PaymentMethod = r.PaymentMethod
	m.Reference = r.Reference
	m.Approved = r.Approved
	m.Voided = r.Voided
	m.PaymentDate = r.PaymentDate
	m.Allocations = r.Allocations
	m.VoidedAt = r.VoidedAt
	m.VoidReason = r.VoidReason
}

// ReceiptModelFromDomain creates a new persistence model from a domain Receipt
func ReceiptModelFromDomain(r *billing.Receipt) *ReceiptModel {
	m := &ReceiptModel{}
	m.FromDomain(r)
	return m
}

// CreditTransactionModel is the persistence model for credit transactions.
// Rows are append-only; reversals are new rows referencing the original.
type CreditTransactionModel struct {
	BaseModel
	StudentID       uuid.UUID          `gorm:"type:uuid;not null;index"`
	Type            billing.CreditType `gorm:"type:varchar(20);not null;index"`
	Amount          valueobject.Money  `gorm:"type:decimal(18,2);not null"`
	SourceReceiptID *uuid.UUID         `gorm:"type:uuid;index"`
	SourceInvoiceID *uuid.UUID         `gorm:"type:uuid;index"`
	ReversesID      *uuid.UUID         `gorm:"type:uuid;index"`
	Description     string             `gorm:"type:varchar(500)"`
	TransactionDate valueobject.Date   `gorm:"type:date;not null;index"`
}

// TableName returns the table name for GORM
func (CreditTransactionModel) TableName() string {
	return "credit_transactions"
}

// ToDomain converts the persistence model to a domain CreditTransaction
func (m *CreditTransactionModel) ToDomain() *billing.CreditTransaction {
	return &billing.CreditTransaction{
		BaseEntity:      m.BaseModel.ToDomain(),
		StudentID:       m.StudentID,
		Type:            m.Type,
		Amount:          m.Amount,
		SourceReceiptID: m.SourceReceiptID,
		SourceInvoiceID: m.SourceInvoiceID,
		ReversesID:      m.ReversesID,
		Description:     m.Description,
		TransactionDate: m.TransactionDate,
	}
}

// CreditTransactionModelFromDomain creates a new persistence model from a
// domain CreditTransaction
func CreditTransactionModelFromDomain(t *billing.CreditTransaction) *CreditTransactionModel {
	m := &CreditTransactionModel{}
	m.FromDomainBaseEntity(t.BaseEntity)
	m.StudentID = t.StudentID
	m.Type = t.Type
	m.Amount = t.Amount
	m.SourceReceiptID = t.SourceReceiptID
	m.SourceInvoiceID = t.SourceInvoiceID
	m.ReversesID = t.ReversesID
	m.Description = t.Description
	m.TransactionDate = t.TransactionDate
	return m
}

// StudentModel is the persistence model for students
type StudentModel struct {
	ID              uuid.UUID         `gorm:"type:uuid;primary_key"`
	AdmissionNumber string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	FullName        string            `gorm:"type:varchar(200);not null"`
	Residence       billing.Residence `gorm:"type:varchar(20);not null"`
	Guardian        string            `gorm:"type:varchar(200)"`
	Active          bool              `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (StudentModel) TableName() string {
	return "students"
}

// ToDomain converts the persistence model to a domain Student
func (m *StudentModel) ToDomain() *billing.Student {
	return &billing.Student{
		ID:              m.ID,
		AdmissionNumber: m.AdmissionNumber,
		FullName:        m.FullName,
		Residence:       m.Residence,
		Guardian:        m.Guardian,
		Active:          m.Active,
	}
}

// StudentModelFromDomain creates a new persistence model from a domain Student
func StudentModelFromDomain(s *billing.Student) *StudentModel {
	return &StudentModel{
		ID:              s.ID,
		AdmissionNumber: s.AdmissionNumber,
		FullName:        s.FullName,
		Residence:       s.Residence,
		Guardian:        s.Guardian,
		Active:          s.Active,
	}
}

// EnrollmentModel is the persistence model for enrollments
type EnrollmentModel struct {
	ID          uuid.UUID         `gorm:"type:uuid;primary_key"`
	StudentID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	StudentName string            `gorm:"type:varchar(200)"`
	ClassName   string            `gorm:"type:varchar(100);not null;index"`
	TermID      string            `gorm:"type:varchar(50);not null;index"`
	Year        int               `gorm:"not null"`
	Residence   billing.Residence `gorm:"type:varchar(20);not null"`
	Active      bool              `gorm:"not null;default:true"`
	WithdrawnAt valueobject.Date  `gorm:"type:date"`
}

// TableName returns the table name for GORM
func (EnrollmentModel) TableName() string {
	return "enrollments"
}

// ToDomain converts the persistence model to a domain Enrollment
func (m *EnrollmentModel) ToDomain() *billing.Enrollment {
	return &billing.Enrollment{
		ID:          m.ID,
		StudentID:   m.StudentID,
		StudentName: m.StudentName,
		ClassName:   m.ClassName,
		TermID:      m.TermID,
		Year:        m.Year,
		Residence:   m.Residence,
		Active:      m.Active,
		WithdrawnAt: m.WithdrawnAt,
	}
}

// EnrollmentModelFromDomain creates a new persistence model from a domain Enrollment
func EnrollmentModelFromDomain(e *billing.Enrollment) *EnrollmentModel {
	return &EnrollmentModel{
		ID:          e.ID,
		StudentID:   e.StudentID,
		StudentName: e.StudentName,
		ClassName:   e.ClassName,
		TermID:      e.TermID,
		Year:        e.Year,
		Residence:   e.Residence,
		Active:      e.Active,
		WithdrawnAt: e.WithdrawnAt,
	}
}

// FeeItemModel is the persistence model for fee catalog entries
type FeeItemModel struct {
	ID        uuid.UUID           `gorm:"type:uuid;primary_key"`
	Name      string              `gorm:"type:varchar(100);not null"`
	Category  billing.FeeCategory `gorm:"type:varchar(20);not null;index"`
	Amount    valueobject.Money   `gorm:"type:decimal(18,2);not null"`
	TermID    string              `gorm:"type:varchar(50);not null;index"`
	Mandatory bool                `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (FeeItemModel) TableName() string {
	return "fee_items"
}

// ToDomain converts the persistence model to a domain FeeItem
func (m *FeeItemModel) ToDomain() *billing.FeeItem {
	return &billing.FeeItem{
		ID:        m.ID,
		Name:      m.Name,
		Category:  m.Category,
		Amount:    m.Amount,
		TermID:    m.TermID,
		Mandatory: m.Mandatory,
	}
}

// FeeItemModelFromDomain creates a new persistence model from a domain FeeItem
func FeeItemModelFromDomain(f *billing.FeeItem) *FeeItemModel {
	return &FeeItemModel{
		ID:        f.ID,
		Name:      f.Name,
		Category:  f.Category,
		Amount:    f.Amount,
		TermID:    f.TermID,
		Mandatory: f.Mandatory,
	}
}
