package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reconciliation is the persisted end-of-day close. The unique index on
// ClosingDate keeps a day from being closed twice.
type Reconciliation struct {
	ID          uint      `gorm:"primaryKey"`
	ClosingDate time.Time `gorm:"type:date;uniqueIndex:idx_reconciliations_closing_date;not null"`

	ExpectedCash       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ActualCash         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CashVariance       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ExpectedCreditCard decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ActualCreditCard   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreditCardVariance decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	CreditCardBatchReference string `gorm:"size:64"`

	// Summary snapshot at the time of closing, so reprints never drift
	// when late sales are voided.
	QRPaymentsTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	OtherPaymentsTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TransactionCount   int             `gorm:"not null"`
	VoidedCount        int             `gorm:"not null"`
	VoidedAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalSales         decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	VarianceNotes     string `gorm:"type:text"`
	ClosedByStaffID   uint   `gorm:"index"`
	ClosedByStaffName string `gorm:"size:100;not null"`
	CreatedAt         time.Time
}
