package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "accents and case", input: "João  Conceição", expected: "joao conceicao"},
		{name: "punctuation becomes space", input: "maria.silva@email.com", expected: "maria silva email com"},
		{name: "trims and collapses", input: "  Ana   -  Paula ", expected: "ana paula"},
		{name: "underscore is punctuation", input: "ana_paula", expected: "ana paula"},
		{name: "digits kept", input: "Loja 42!", expected: "loja 42"},
		{name: "only symbols", input: "@#$", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestDigitsAndLetters(t *testing.T) {
	assert.Equal(t, "11999998888", Digits("(11) 99999-8888"))
	assert.Equal(t, "", Digits("abc"))
	assert.True(t, HasLetters("ana 11"))
	assert.False(t, HasLetters("(11) 9999-8888"))
}

func TestApplyChain(t *testing.T) {
	assert.Equal(t, "ana@x.com", ApplyChain("  ANA@X.com ", "trim", "lowercase"))
	assert.Equal(t, "keep", Apply("keep", "unknown"))

	fn, ok := Get("text")
	require.True(t, ok)
	assert.Equal(t, "sao paulo", fn("São Paulo"))
}

func TestBrazilPhoneCanonical(t *testing.T) {
	s, err := PhoneStrategyFor("")
	require.NoError(t, err)

	tests := []struct {
		name     string
		area     string
		number   string
		expected string
	}{
		{name: "ten digits", area: "11", number: "3333-4444", expected: "551133334444"},
		{name: "trunk zero", area: "01", number: "199998888", expected: "551199998888"},
		{name: "eleven digits no zero", area: "11", number: "99999-8888", expected: "11999998888"},
		{name: "short", area: "", number: "1234", expected: "1234"},
		{name: "empty", area: "", number: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.Canonical(tt.area, tt.number))
		})
	}
}

func TestBrazilPhoneFormat(t *testing.T) {
	s := BrazilPhone{}
	assert.Equal(t, "(11) 99999-8888", s.Format("11", "999998888"))
	assert.Equal(t, "(11) 3333-4444", s.Format("11", "33334444"))
	assert.Equal(t, "123", s.Format("", "123"))
	assert.Equal(t, "", s.Format("11", ""))
}

func TestPhoneStrategyForUnknown(t *testing.T) {
	_, err := PhoneStrategyFor("ZZ")
	assert.Error(t, err)
}
