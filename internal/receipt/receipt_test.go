package receipt

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"lengolf-closing/internal/closing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func shortDay() Report {
	return Report{
		Store: closing.StoreInfo{
			Name:    "LENGOLF",
			Address: "540 Mercury Tower, Ploenchit Rd, Bangkok",
			TaxID:   "0105566207013",
		},
		Summary: closing.ClosingSummary{
			ClosingDate:        "2026-10-16",
			ExpectedCash:       d("1000.00"),
			ExpectedCreditCard: d("500.00"),
			QRPaymentsTotal:    d("200.00"),
			OtherPaymentsTotal: d("50.00"),
			TransactionCount:   5,
			VoidedCount:        1,
			VoidedAmount:       d("80.00"),
			TotalSales:         d("1750.00"),
		},
		ID:                 7,
		ActualCash:         d("950.00"),
		ActualCreditCard:   d("500.00"),
		CashVariance:       d("-50.00"),
		CreditCardVariance: d("0"),
		BatchReference:     "B-0042",
		VarianceNotes:      "Paid ice delivery from the drawer",
		ClosedBy:           "Dolly",
		ClosedAt:           time.Date(2026, 10, 16, 22, 0, 0, 0, time.UTC),
		PrintedAt:          time.Date(2026, 10, 16, 22, 5, 0, 0, time.UTC),
	}
}

func join(parts ...string) []byte {
	return []byte(strings.Join(parts, ""))
}

func TestEncodeGolden(t *testing.T) {
	const (
		rule   = "--------------------------------\n"
		boldOn = "\x1b\x45\x01"
		bold0  = "\x1b\x45\x00"
	)
	want := join(
		"\x1b\x40", "\x1b\x74\x00",
		"\x1b\x61\x01",
		boldOn, "LENGOLF\n", bold0,
		"540 Mercury Tower, Ploenchit Rd,\n",
		"Bangkok\n",
		"Tax ID 0105566207013\n",
		"\n",
		"\x1d\x21\x11", "DAY CLOSING\n", "\x1d\x21\x00",
		"\x1b\x61\x00",
		rule,
		"Date                  2026-10-16\n",
		"Report                        #7\n",
		"Closed by                  Dolly\n",
		"Closed at       2026-10-16 22:00\n",
		rule,
		boldOn, "CASH\n", bold0,
		"Expected                1,000.00\n",
		"Actual                    950.00\n",
		"Variance            -50.00 SHORT\n",
		boldOn, "CREDIT CARD\n", bold0,
		"Expected                  500.00\n",
		"Actual                    500.00\n",
		"Variance                 0.00 OK\n",
		"Batch ref                 B-0042\n",
		rule,
		"Voided (1)                 80.00\n",
		"QR payments               200.00\n",
		"Other payments             50.00\n",
		"Transactions                   5\n",
		"Total sales             1,750.00\n",
		rule,
		"Notes:\n",
		"Paid ice delivery from the\n",
		"drawer\n",
		rule,
		"\x1b\x61\x01",
		"Printed 2026-10-16 22:05\n",
		"\n", "\n",
		"________________________\n",
		"Staff signature\n",
		"\x1b\x64\x04",
		"\x1d\x56\x42\x00",
	)

	got, err := Encode(shortDay())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Encode(shortDay())
	require.NoError(t, err)
	b, err := Encode(shortDay())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestEncodeOmitsOptionalSections(t *testing.T) {
	r := shortDay()
	r.ActualCash = d("1000")
	r.CashVariance = decimal.Zero
	r.VarianceNotes = ""
	r.BatchReference = ""
	r.Summary.VoidedCount = 0
	r.Summary.VoidedAmount = decimal.Zero
	r.PrintedAt = time.Time{}

	out, err := Encode(r)
	require.NoError(t, err)
	s := string(out)
	assert.NotContains(t, s, "Notes:")
	assert.NotContains(t, s, "Batch ref")
	assert.NotContains(t, s, "Voided")
	assert.NotContains(t, s, "Printed")
	assert.Contains(t, s, "QR payments               200.00\n")
}

func TestEncodeRejectsMalformedReports(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(r *Report)
		field string
	}{
		{"no store name", func(r *Report) { r.Store.Name = " " }, "store.name"},
		{"no date", func(r *Report) { r.Summary.ClosingDate = "" }, "closing_date"},
		{"bad date", func(r *Report) { r.Summary.ClosingDate = "16/10/2026" }, "closing_date"},
		{"no staff", func(r *Report) { r.ClosedBy = "" }, "closed_by_staff_name"},
		{"no close time", func(r *Report) { r.ClosedAt = time.Time{} }, "created_at"},
		{"negative cash", func(r *Report) { r.ActualCash = d("-1") }, "actual_cash"},
		{"negative count", func(r *Report) { r.Summary.TransactionCount = -1 }, "transaction_count"},
		{"total mismatch", func(r *Report) { r.Summary.TotalSales = d("1749.99") }, "total_sales"},
		{"stale cash variance", func(r *Report) { r.CashVariance = decimal.Zero }, "cash_variance"},
		{"stale card variance", func(r *Report) { r.CreditCardVariance = d("5") }, "credit_card_variance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := shortDay()
			tt.edit(&r)
			out, err := Encode(r)
			assert.Nil(t, out)
			var eerr *EncodeError
			require.ErrorAs(t, err, &eerr)
			assert.Equal(t, tt.field, eerr.Field)
		})
	}
}

func TestRowsNeverExceedWidth(t *testing.T) {
	p := &page{width: Width}
	p.row("Closed by", "Somchai Wongsakul-Rattanakosin Srisuk")
	p.row("A very long label that keeps going", "1,234,567.89")
	p.line(strings.Repeat("x", 50))
	p.wrap("supercalifragilisticexpialidocious-and-then-some more words")

	for _, ln := range strings.Split(strings.TrimSuffix(p.buf.String(), "\n"), "\n") {
		assert.LessOrEqual(t, len(ln), Width, "%q", ln)
	}
	assert.Contains(t, p.buf.String(), "A very long label t 1,234,567.89\n")
}

func TestNonLatinTextIsFolded(t *testing.T) {
	p := &page{width: Width}
	p.line("ปิดยอด Café")

	// é exists in CP437 as 0x82. Thai consonants do not and the
	// combining vowel is dropped.
	assert.Equal(t, []byte("????? Caf\x82\n"), p.buf.Bytes())
}

func TestCombiningMarksTakeNoColumn(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "thai above vowel", in: "a\u0E34", want: "a"},
		{name: "thai mai han akat", in: "\u0E01\u0E31b", want: "?b"},
		{name: "thai tone marks", in: "\u0E01\u0E48\u0E49\u0E4Ax", want: "?x"},
		{name: "latin acute", in: "e\u0301", want: "e"},
		{name: "enclosing circle", in: "1\u20DD", want: "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fold(tt.in))
		})
	}

	p := &page{width: Width}
	p.row("Closed by", "\u0E2A\u0E21\u0E0A\u0E32\u0E22 \u0E28\u0E23\u0E35\u0E2A\u0E38\u0E02")
	assert.Equal(t, "Closed by             ????? ????\n", p.buf.String())
}

func TestMoney(t *testing.T) {
	tests := map[string]string{
		"0":         "0.00",
		"5":         "5.00",
		"999.5":     "999.50",
		"1000":      "1,000.00",
		"1234567.8": "1,234,567.80",
		"-50":       "-50.00",
		"-1000.25":  "-1,000.25",
	}
	for in, want := range tests {
		assert.Equal(t, want, money(d(in)), in)
	}
}

func TestFromPrintData(t *testing.T) {
	printed := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	data := closing.PrintData{
		Store: closing.StoreInfo{Name: "LENGOLF"},
		Reconciliation: closing.Reconciliation{
			ID:                 3,
			ClosingDate:        "2026-10-15",
			ExpectedCash:       d("100"),
			ActualCash:         d("110"),
			CashVariance:       d("10"),
			ExpectedCreditCard: d("0"),
			ActualCreditCard:   d("0"),
			CreditCardVariance: d("0"),
			TotalSales:         d("100"),
			TransactionCount:   1,
			VarianceNotes:      "tip left in drawer",
			ClosedByStaffName:  "Nok",
			CreatedAt:          time.Date(2026, 10, 15, 23, 0, 0, 0, time.UTC),
		},
	}

	r := FromPrintData(data, printed)
	assert.Equal(t, "2026-10-15", r.Summary.ClosingDate)
	assert.Equal(t, "Nok", r.ClosedBy)
	assert.Equal(t, printed, r.PrintedAt)

	out, err := Encode(r)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Variance             +10.00 OVER\n")
}
