package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/diogoqz/api-consulta-hotmart/pkg/normalizers"
)

// dateLayouts are tried in order. Brazilian day first layouts come first.
var dateLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

var moneyCleaner = strings.NewReplacer("R$", "", " ", "", "\u00a0", "", "\t", "", ".", "")

// ParseMoney parses a Brazilian formatted amount ("R$ 1.234,56"). Unparseable values are 0.
func ParseMoney(s string) float64 {
	clean := moneyCleaner.Replace(strings.TrimSpace(s))
	clean = strings.Replace(clean, ",", ".", 1)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseAmount parses a plain decimal ("97.50"), falling back to ParseMoney when a comma is present
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		return ParseMoney(s)
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "R$"), 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseDate parses the date formats found in platform exports, in loc when the value has no zone.
// Unparseable or empty values are nil.
func ParseDate(s string, loc *time.Location) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// SplitPhone separates the area code from a phone exported as a single field.
// A leading 55 country code is dropped from 12 and 13 digit numbers first.
// Numbers that are not 10 or 11 digits long are returned without an area code.
func SplitPhone(raw string) (string, string) {
	digits := normalizers.Digits(raw)
	if strings.HasPrefix(digits, "55") && (len(digits) == 12 || len(digits) == 13) {
		digits = digits[2:]
	}
	if len(digits) == 10 || len(digits) == 11 {
		return digits[:2], digits[2:]
	}
	return "", digits
}
