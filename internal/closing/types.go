package closing

import (
	"time"

	"lengolf-closing/internal/models"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// ClosingSummary is the server-computed view of a business day. It is
// read-only input to the reconciliation workflow.
type ClosingSummary struct {
	ClosingDate        string          `json:"closing_date"`
	ExpectedCash       decimal.Decimal `json:"expected_cash"`
	ExpectedCreditCard decimal.Decimal `json:"expected_credit_card"`
	QRPaymentsTotal    decimal.Decimal `json:"qr_payments_total"`
	OtherPaymentsTotal decimal.Decimal `json:"other_payments_total"`
	TransactionCount   int             `json:"transaction_count"`
	VoidedCount        int             `json:"voided_count"`
	VoidedAmount       decimal.Decimal `json:"voided_amount"`
	TotalSales         decimal.Decimal `json:"total_sales"`
}

// Reconciliation is the wire form of a persisted close.
type Reconciliation struct {
	ID                       uint            `json:"id"`
	ClosingDate              string          `json:"closing_date"`
	ExpectedCash             decimal.Decimal `json:"expected_cash"`
	ActualCash               decimal.Decimal `json:"actual_cash"`
	CashVariance             decimal.Decimal `json:"cash_variance"`
	ExpectedCreditCard       decimal.Decimal `json:"expected_credit_card"`
	ActualCreditCard         decimal.Decimal `json:"actual_credit_card"`
	CreditCardVariance       decimal.Decimal `json:"credit_card_variance"`
	CreditCardBatchReference string          `json:"credit_card_batch_reference,omitempty"`
	QRPaymentsTotal          decimal.Decimal `json:"qr_payments_total"`
	OtherPaymentsTotal       decimal.Decimal `json:"other_payments_total"`
	TransactionCount         int             `json:"transaction_count"`
	VoidedCount              int             `json:"voided_count"`
	VoidedAmount             decimal.Decimal `json:"voided_amount"`
	TotalSales               decimal.Decimal `json:"total_sales"`
	VarianceNotes            string          `json:"variance_notes,omitempty"`
	ClosedByStaffName        string          `json:"closed_by_staff_name"`
	CreatedAt                time.Time       `json:"created_at"`
}

// Summary returns the day summary captured when the record was closed.
func (r Reconciliation) Summary() ClosingSummary {
	return ClosingSummary{
		ClosingDate:        r.ClosingDate,
		ExpectedCash:       r.ExpectedCash,
		ExpectedCreditCard: r.ExpectedCreditCard,
		QRPaymentsTotal:    r.QRPaymentsTotal,
		OtherPaymentsTotal: r.OtherPaymentsTotal,
		TransactionCount:   r.TransactionCount,
		VoidedCount:        r.VoidedCount,
		VoidedAmount:       r.VoidedAmount,
		TotalSales:         r.TotalSales,
	}
}

func toReconciliation(m models.Reconciliation) Reconciliation {
	return Reconciliation{
		ID:                       m.ID,
		ClosingDate:              m.ClosingDate.Format(DateLayout),
		ExpectedCash:             m.ExpectedCash,
		ActualCash:               m.ActualCash,
		CashVariance:             m.CashVariance,
		ExpectedCreditCard:       m.ExpectedCreditCard,
		ActualCreditCard:         m.ActualCreditCard,
		CreditCardVariance:       m.CreditCardVariance,
		CreditCardBatchReference: m.CreditCardBatchReference,
		QRPaymentsTotal:          m.QRPaymentsTotal,
		OtherPaymentsTotal:       m.OtherPaymentsTotal,
		TransactionCount:         m.TransactionCount,
		VoidedCount:              m.VoidedCount,
		VoidedAmount:             m.VoidedAmount,
		TotalSales:               m.TotalSales,
		VarianceNotes:            m.VarianceNotes,
		ClosedByStaffName:        m.ClosedByStaffName,
		CreatedAt:                m.CreatedAt,
	}
}

type SubmitRequest struct {
	Date                     string           `json:"date" validate:"required,datetime=2006-01-02"`
	ActualCash               *decimal.Decimal `json:"actual_cash" validate:"required"`
	ActualCreditCard         *decimal.Decimal `json:"actual_credit_card" validate:"required"`
	CreditCardBatchReference string           `json:"credit_card_batch_reference" validate:"max=64"`
	VarianceNotes            string           `json:"variance_notes" validate:"max=2000"`
	StaffPIN                 string           `json:"staff_pin" validate:"required,numeric,min=4,max=8"`
}

type SubmitResponse struct {
	Reconciliation *Reconciliation `json:"reconciliation,omitempty"`
	Error          string          `json:"error,omitempty"`
}

type HistoryResponse struct {
	Reconciliations []Reconciliation `json:"reconciliations"`
}

// StoreInfo is printed in the report header.
type StoreInfo struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
}

// PrintData is everything the receipt encoder needs for one closing.
type PrintData struct {
	Store          StoreInfo      `json:"store"`
	Reconciliation Reconciliation `json:"reconciliation"`
}

type PrintThermalRequest struct {
	ReconciliationID uint `json:"reconciliationId" validate:"required"`
}

type PrintThermalResponse struct {
	Success     bool       `json:"success"`
	ClosingData *PrintData `json:"closingData,omitempty"`
	Error       string     `json:"error,omitempty"`
}
