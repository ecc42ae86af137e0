package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	PIN  string `json:"staff_pin,omitempty" validate:"required,numeric,min=4"`
}

func TestFirstErrorUsesJSONName(t *testing.T) {
	v := New()

	err := v.Struct(sample{Date: "2026-10-16", PIN: "12"})
	field, tag, ok := FirstError(err)
	assert.True(t, ok)
	assert.Equal(t, "staff_pin", field)
	assert.Equal(t, "min", tag)

	err = v.Struct(sample{Date: "16/10/2026", PIN: "1234"})
	field, tag, ok = FirstError(err)
	assert.True(t, ok)
	assert.Equal(t, "date", field)
	assert.Equal(t, "datetime", tag)
}

func TestFirstErrorIgnoresOtherErrors(t *testing.T) {
	_, _, ok := FirstError(errors.New("boom"))
	assert.False(t, ok)

	assert.NoError(t, New().Struct(sample{Date: "2026-10-16", PIN: "123456"}))
}
