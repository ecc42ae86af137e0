// Package receipt renders a day closing as an ESC/POS byte stream for a
// 58 mm thermal printer.
package receipt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"lengolf-closing/internal/closing"
	"lengolf-closing/internal/variance"

	"github.com/shopspring/decimal"
)

// Width is the printable column count of a 58 mm printer in font A.
const Width = 32

const stampLayout = "2006-01-02 15:04"

// EncodeError reports a report field that is missing or inconsistent.
// Nothing is printed when encoding fails.
type EncodeError struct {
	Field  string
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode receipt: %s %s", e.Field, e.Reason)
}

// Report is everything printed on a closing receipt.
type Report struct {
	Store   closing.StoreInfo
	Summary closing.ClosingSummary

	ID                 uint
	ActualCash         decimal.Decimal
	ActualCreditCard   decimal.Decimal
	CashVariance       decimal.Decimal
	CreditCardVariance decimal.Decimal
	BatchReference     string
	VarianceNotes      string
	ClosedBy           string
	ClosedAt           time.Time

	// PrintedAt is stamped in the footer when set.
	PrintedAt time.Time
}

// FromPrintData builds a report from the server's print payload.
func FromPrintData(data closing.PrintData, printedAt time.Time) Report {
	rec := data.Reconciliation
	return Report{
		Store:              data.Store,
		Summary:            rec.Summary(),
		ID:                 rec.ID,
		ActualCash:         rec.ActualCash,
		ActualCreditCard:   rec.ActualCreditCard,
		CashVariance:       rec.CashVariance,
		CreditCardVariance: rec.CreditCardVariance,
		BatchReference:     rec.CreditCardBatchReference,
		VarianceNotes:      rec.VarianceNotes,
		ClosedBy:           rec.ClosedByStaffName,
		ClosedAt:           rec.CreatedAt,
		PrintedAt:          printedAt,
	}
}

func (r Report) validate() error {
	s := r.Summary
	if strings.TrimSpace(r.Store.Name) == "" {
		return &EncodeError{Field: "store.name", Reason: "is missing"}
	}
	if _, err := time.Parse(closing.DateLayout, s.ClosingDate); err != nil {
		return &EncodeError{Field: "closing_date", Reason: fmt.Sprintf("%q is not a date", s.ClosingDate)}
	}
	if strings.TrimSpace(r.ClosedBy) == "" {
		return &EncodeError{Field: "closed_by_staff_name", Reason: "is missing"}
	}
	if r.ClosedAt.IsZero() {
		return &EncodeError{Field: "created_at", Reason: "is missing"}
	}

	amounts := []struct {
		field string
		v     decimal.Decimal
	}{
		{"expected_cash", s.ExpectedCash},
		{"expected_credit_card", s.ExpectedCreditCard},
		{"qr_payments_total", s.QRPaymentsTotal},
		{"other_payments_total", s.OtherPaymentsTotal},
		{"voided_amount", s.VoidedAmount},
		{"total_sales", s.TotalSales},
		{"actual_cash", r.ActualCash},
		{"actual_credit_card", r.ActualCreditCard},
	}
	for _, a := range amounts {
		if a.v.IsNegative() {
			return &EncodeError{Field: a.field, Reason: "is negative"}
		}
	}
	if s.TransactionCount < 0 || s.VoidedCount < 0 {
		return &EncodeError{Field: "transaction_count", Reason: "is negative"}
	}

	total := s.ExpectedCash.Add(s.ExpectedCreditCard).Add(s.QRPaymentsTotal).Add(s.OtherPaymentsTotal)
	if !total.Equal(s.TotalSales) {
		return &EncodeError{Field: "total_sales", Reason: "does not match the payment totals"}
	}
	if !variance.Of(r.ActualCash, s.ExpectedCash).Equal(r.CashVariance) {
		return &EncodeError{Field: "cash_variance", Reason: "does not match actual minus expected"}
	}
	if !variance.Of(r.ActualCreditCard, s.ExpectedCreditCard).Equal(r.CreditCardVariance) {
		return &EncodeError{Field: "credit_card_variance", Reason: "does not match actual minus expected"}
	}
	return nil
}

// Encode renders the report. The output depends only on r.
func Encode(r Report) ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	s := r.Summary
	p := &page{width: Width}

	p.cmd(cmdInit)
	p.cmd(cmdCodePage)

	// header
	p.cmd(cmdAlignCtr)
	p.cmd(cmdBoldOn)
	p.line(r.Store.Name)
	p.cmd(cmdBoldOff)
	if r.Store.Address != "" {
		p.wrap(r.Store.Address)
	}
	if r.Store.TaxID != "" {
		p.line("Tax ID " + r.Store.TaxID)
	}
	p.blank()
	p.cmd(cmdDoubleSize)
	p.line("DAY CLOSING")
	p.cmd(cmdNormalSize)

	p.cmd(cmdAlignLeft)
	p.rule()
	p.row("Date", s.ClosingDate)
	if r.ID != 0 {
		p.row("Report", "#"+strconv.FormatUint(uint64(r.ID), 10))
	}
	p.row("Closed by", r.ClosedBy)
	p.row("Closed at", r.ClosedAt.Format(stampLayout))
	p.rule()

	// line items
	p.cmd(cmdBoldOn)
	p.line("CASH")
	p.cmd(cmdBoldOff)
	p.row("Expected", money(s.ExpectedCash))
	p.row("Actual", money(r.ActualCash))
	p.row("Variance", signed(r.CashVariance))

	p.cmd(cmdBoldOn)
	p.line("CREDIT CARD")
	p.cmd(cmdBoldOff)
	p.row("Expected", money(s.ExpectedCreditCard))
	p.row("Actual", money(r.ActualCreditCard))
	p.row("Variance", signed(r.CreditCardVariance))
	if r.BatchReference != "" {
		p.row("Batch ref", r.BatchReference)
	}
	p.rule()

	if s.VoidedCount > 0 {
		p.row(fmt.Sprintf("Voided (%d)", s.VoidedCount), money(s.VoidedAmount))
	}
	p.row("QR payments", money(s.QRPaymentsTotal))
	p.row("Other payments", money(s.OtherPaymentsTotal))
	p.row("Transactions", strconv.Itoa(s.TransactionCount))
	p.row("Total sales", money(s.TotalSales))

	if notes := strings.TrimSpace(r.VarianceNotes); notes != "" {
		p.rule()
		p.line("Notes:")
		p.wrap(notes)
	}
	p.rule()

	// footer
	p.cmd(cmdAlignCtr)
	if !r.PrintedAt.IsZero() {
		p.line("Printed " + r.PrintedAt.Format(stampLayout))
	}
	p.blank()
	p.blank()
	p.line("________________________")
	p.line("Staff signature")
	p.cmd(cmdFeedLines)
	p.cmd(cmdCut)

	return p.bytes(), nil
}

// money formats d with two decimals and thousands separators.
func money(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteString(frac)
	return b.String()
}

// signed formats a variance with an explicit sign and its classification.
func signed(v decimal.Decimal) string {
	switch variance.Classify(v) {
	case variance.Over:
		return "+" + money(v) + " OVER"
	case variance.Short:
		return money(v) + " SHORT"
	}
	return "0.00 OK"
}
