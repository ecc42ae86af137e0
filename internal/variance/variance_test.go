package variance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		actual   string
		expected string
		want     string
		status   Status
	}{
		{name: "balanced cash", actual: "1000.00", expected: "1000.00", want: "0", status: Balanced},
		{name: "short cash", actual: "950.00", expected: "1000.00", want: "-50", status: Short},
		{name: "over credit", actual: "1200.5", expected: "1200", want: "0.5", status: Over},
		{name: "empty actual counts as zero", actual: "", expected: "300", want: "-300", status: Short},
		{name: "empty both", actual: "", expected: "", want: "0", status: Balanced},
		{name: "thousands separators", actual: "1,250.10", expected: "1,250.00", want: "0.1", status: Over},
		{name: "exact decimal subtraction", actual: "0.1", expected: "0.3", want: "-0.2", status: Short},
		{name: "rounded to cents", actual: "10.004", expected: "10", want: "0", status: Balanced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Compute(tt.actual, tt.expected)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
			assert.Equal(t, tt.status, Classify(got))
		})
	}
}

func TestComputeSameValueIsZero(t *testing.T) {
	t.Parallel()

	for _, x := range []string{"0", "0.01", "-3.5", "999999.99", "1234567.891"} {
		got, err := Compute(x, x)
		require.NoError(t, err)
		assert.True(t, got.IsZero(), "variance(%s, %s) = %s", x, x, got)
	}
}

func TestComputeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Compute("12abc", "10")
	assert.Error(t, err)

	_, err = Compute("10", "ten")
	assert.Error(t, err)
}

func TestClassifyBoundary(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Balanced, Classify(decimal.RequireFromString("0.009")))
	assert.Equal(t, Over, Classify(decimal.RequireFromString("0.01")))
	assert.Equal(t, Short, Classify(decimal.RequireFromString("-0.01")))
}

func TestAny(t *testing.T) {
	t.Parallel()

	assert.False(t, Any(decimal.Zero, decimal.Zero))
	assert.True(t, Any(decimal.Zero, decimal.RequireFromString("-0.01")))
	assert.False(t, Any())
}

func TestNewResult(t *testing.T) {
	t.Parallel()

	r := NewResult(decimal.RequireFromString("950"), decimal.RequireFromString("1000"))
	assert.Equal(t, Short, r.Status)
	assert.True(t, r.Amount.Equal(decimal.NewFromInt(-50)))
}
