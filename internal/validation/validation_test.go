package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cardForm struct {
	Holder string `json:"cardHolder" validate:"required,min=2"`
	Number string `json:"cardNumber" validate:"required,cardnumber"`
	Expiry string `json:"expiry" validate:"required,expiry"`
	CVV    string `json:"cvv" validate:"required,min=3,max=4,digits"`
	Parts  *int   `json:"installments" validate:"omitempty,min=1,max=12"`
}

func TestIsValidCardNumber(t *testing.T) {
	tests := []struct {
		name   string
		number string
		valid  bool
	}{
		{name: "16 digits", number: "4111111111111111", valid: true},
		{name: "with spaces", number: "4111 1111 1111 1111", valid: true},
		{name: "with hyphens", number: "4111-1111-1111-1111", valid: true},
		{name: "12 digits", number: "123456789012", valid: true},
		{name: "19 digits", number: "1234567890123456789", valid: true},
		{name: "too short", number: "12345678901", valid: false},
		{name: "too long", number: "12345678901234567890", valid: false},
		{name: "contains letters", number: "4111a11111111111", valid: false},
		{name: "empty string", number: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidCardNumber(tt.number)
			if got != tt.valid {
				t.Fatalf("IsValidCardNumber(%q) = %v, want %v", tt.number, got, tt.valid)
			}
		})
	}
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "4111111111111111", Digits("4111 1111-1111 1111"))
	assert.Equal(t, "", Digits("abc"))
}

func TestConvert_FieldMessages(t *testing.T) {
	v := New()
	zero := 0

	err := Convert(v.Struct(cardForm{
		Holder: "A",
		Number: "1234",
		Expiry: "13/25",
		CVV:    "12a",
		Parts:  &zero,
	}))
	require.Error(t, err)

	var vErr *Error
	require.True(t, errors.As(err, &vErr))

	assert.Equal(t, "must be at least 2 characters long", vErr.Fields["cardHolder"])
	assert.Equal(t, "must contain 12 to 19 digits", vErr.Fields["cardNumber"])
	assert.Equal(t, "must match format MM/YY", vErr.Fields["expiry"])
	assert.Equal(t, "must contain only digits", vErr.Fields["cvv"])
	assert.Equal(t, "must be at least 1", vErr.Fields["installments"])
}

func TestConvert_Valid(t *testing.T) {
	v := New()

	err := Convert(v.Struct(cardForm{
		Holder: "Ana Silva",
		Number: "4111 1111 1111 1111",
		Expiry: "09/28",
		CVV:    "123",
	}))
	assert.NoError(t, err)
}

func TestConvert_PassesThroughOtherErrors(t *testing.T) {
	other := errors.New("boom")
	assert.Same(t, other, Convert(other))
	assert.NoError(t, Convert(nil))
}

func TestError_Message(t *testing.T) {
	err := &Error{Fields: map[string]string{"b": "is required", "a": "is invalid"}}
	assert.Equal(t, "validation failed: a is invalid; b is required", err.Error())
}
