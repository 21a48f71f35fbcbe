// Package normalizers provides field canonicalization for customer lookup
package normalizers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("trim", Trim)
	Register("lowercase", Lowercase)
	Register("text", Text)
	Register("digits", Digits)
	Register("email", Email)
	Register("strip_accents", StripAccents)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value. Unknown names leave the value untouched.
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Email lowercases and trims an email address
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// StripAccents decomposes s and drops combining marks ("João" -> "Joao")
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Text produces the searchable form of free text:
// lowercase, no diacritics, punctuation replaced by spaces, single spaced, trimmed.
func Text(s string) string {
	if s == "" {
		return ""
	}

	s = StripAccents(strings.ToLower(s))

	var result strings.Builder
	result.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && result.Len() > 0 {
				result.WriteByte(' ')
			}
			pendingSpace = false
			result.WriteRune(r)
			continue
		}
		pendingSpace = true
	}

	return result.String()
}

// Digits keeps only ASCII digits
func Digits(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// HasLetters reports whether s contains any letter
func HasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
