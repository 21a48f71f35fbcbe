// Package classifier decides what kind of lookup a raw query string asks for
package classifier

import (
	"strings"
	"unicode/utf8"

	"github.com/diogoqz/api-consulta-hotmart/pkg/normalizers"
)

// Kind is the intent of a query
type Kind string

const (
	KindEmpty Kind = "empty"
	KindPhone Kind = "phone"
	KindEmail Kind = "email"
	KindText  Kind = "text"
)

// Query is a classified search query with every derived form the scorers need
type Query struct {
	Raw        string `json:"raw"`
	Kind       Kind   `json:"kind"`
	Normalized string `json:"normalized"`
	// Tokens are the normalized terms longer than one character
	Tokens []string `json:"tokens"`
	// Digits holds the digits of the raw query
	Digits string `json:"digits"`
	// EmailLower is the trimmed, lowercased raw query
	EmailLower string `json:"email_lower"`
}

func (q Query) IsPhone() bool { return q.Kind == KindPhone }
func (q Query) IsEmail() bool { return q.Kind == KindEmail }
func (q Query) IsText() bool  { return q.Kind == KindText }
func (q Query) IsEmpty() bool { return q.Kind == KindEmpty }

// FirstToken returns the first query token or "" when there is none
func (q Query) FirstToken() string {
	if len(q.Tokens) == 0 {
		return ""
	}
	return q.Tokens[0]
}

// Classify inspects raw and returns its classification.
// Phone wins over email, email wins over text. Blank input is KindEmpty.
func Classify(raw string) Query {
	q := Query{Raw: raw, Kind: KindEmpty}
	if strings.TrimSpace(raw) == "" {
		return q
	}

	q.Normalized = normalizers.Text(raw)
	q.Tokens = Tokenize(q.Normalized)
	q.Digits = normalizers.Digits(raw)
	q.EmailLower = strings.ToLower(strings.TrimSpace(raw))

	switch {
	case q.Digits != "" && !normalizers.HasLetters(raw):
		q.Kind = KindPhone
	case strings.Contains(raw, "@"):
		q.Kind = KindEmail
	default:
		q.Kind = KindText
	}

	return q
}

// Tokenize splits normalized text into terms, dropping single character ones
func Tokenize(normalized string) []string {
	fields := strings.Split(normalized, " ")
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
