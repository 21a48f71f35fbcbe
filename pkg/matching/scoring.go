package matching

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/diogoqz/api-consulta-hotmart/pkg/classifier"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

// FieldMatch is the outcome of comparing a whole field against the query
type FieldMatch int

const (
	FieldNoMatch FieldMatch = iota
	FieldPartial
	FieldExact
)

// Breakdown holds every signal evaluated for one record and one query.
// Total and Reasons derive the final score and reason list from it.
type Breakdown struct {
	Phone FieldMatch
	Email FieldMatch

	NameTokens  []TokenMatch
	NamePrefix  bool
	EmailTokens []TokenMatch
	EmailPrefix bool
	CityTokens  []bool
	StateTokens []bool

	Active   bool
	HasEmail bool
	HasPhone bool
	Recency  float64
}

// Evaluate computes the breakdown of view against q at instant now
func Evaluate(view models.NormalizedView, q classifier.Query, now time.Time) Breakdown {
	b := Breakdown{
		Active:   view.IsActive,
		HasEmail: view.HasEmail,
		HasPhone: view.HasPhone,
		Recency:  RecencyBonus(view.LastActivity, now),
	}

	switch {
	case q.IsPhone():
		b.Phone = compareField(view.FullPhone, q.Digits)
	case q.IsEmail():
		b.Email = compareField(view.EmailLower, q.EmailLower)
	case q.IsText():
		first := q.FirstToken()
		b.NameTokens = MatchTokens(view.Name, q.Tokens)
		b.NamePrefix = HasPrefixToken(view.Name, first)
		if view.Email != "" {
			b.EmailTokens = MatchTokens(view.Email, q.Tokens)
			b.EmailPrefix = HasPrefixToken(view.Email, first)
		}
		b.CityTokens = containsTokens(view.City, q.Tokens)
		b.StateTokens = containsTokens(view.State, q.Tokens)
	}

	return b
}

// ScoreRecord scores view against q at instant now
func ScoreRecord(view models.NormalizedView, q classifier.Query, now time.Time) (int, []string) {
	b := Evaluate(view, q, now)
	return b.Total(), b.Reasons()
}

// NameScore is the text score of the name field
func (b Breakdown) NameScore() int {
	return textScore(b.NameTokens, b.NamePrefix)
}

// EmailTextScore is the unweighted text score of the email field
func (b Breakdown) EmailTextScore() int {
	return textScore(b.EmailTokens, b.EmailPrefix)
}

// IntegerScore sums every integral contribution
func (b Breakdown) IntegerScore() int {
	score := 0

	switch b.Phone {
	case FieldExact:
		score += WeightExact
	case FieldPartial:
		score += WeightPhonePartial
	}

	switch b.Email {
	case FieldExact:
		score += WeightExact
	case FieldPartial:
		score += WeightEmailPartial
	}

	score += b.NameScore()

	for i := range b.CityTokens {
		if b.CityTokens[i] {
			score += WeightCity
		}
		if i < len(b.StateTokens) && b.StateTokens[i] {
			score += WeightState
		}
	}

	if b.Active {
		score += WeightActive
	}
	if b.HasEmail {
		score += WeightHasEmail
	}
	if b.HasPhone {
		score += WeightHasPhone
	}
	if b.ReasonCount() > 1 {
		score += WeightMultipleMatch
	}

	return score
}

// Total is the final non-negative score, rounded half up.
// The float64 conversions keep each product rounded on its own so the result
// matches the SQL adapter bit for bit.
func (b Breakdown) Total() int {
	total := float64(b.IntegerScore())
	total += float64(float64(b.EmailTextScore()) * EmailTextFactor)
	total += b.Recency
	rounded := math.Floor(total + 0.5)
	if rounded < 0 {
		return 0
	}
	return int(rounded)
}

// ReasonCount is the number of reasons without building them
func (b Breakdown) ReasonCount() int {
	n := 0
	if b.Phone != FieldNoMatch {
		n++
	}
	if b.Email != FieldNoMatch {
		n++
	}
	n += countMatches(b.NameTokens)
	if b.EmailTextScore() > 0 {
		n += countMatches(b.EmailTokens)
	}
	for i := range b.CityTokens {
		if b.CityTokens[i] {
			n++
		}
		if i < len(b.StateTokens) && b.StateTokens[i] {
			n++
		}
	}
	return n
}

// Reasons lists the fired rules in evaluation order
func (b Breakdown) Reasons() []string {
	reasons := make([]string, 0, b.ReasonCount())

	switch b.Phone {
	case FieldExact:
		reasons = append(reasons, ReasonPhoneExact)
	case FieldPartial:
		reasons = append(reasons, ReasonPhonePartial)
	}

	switch b.Email {
	case FieldExact:
		reasons = append(reasons, ReasonEmailExact)
	case FieldPartial:
		reasons = append(reasons, ReasonEmailPartial)
	}

	reasons = appendTokenReasons(reasons, FieldName, b.NameTokens)
	if b.EmailTextScore() > 0 {
		reasons = appendTokenReasons(reasons, FieldEmail, b.EmailTokens)
	}

	for i := range b.CityTokens {
		if b.CityTokens[i] {
			reasons = append(reasons, ReasonCity)
		}
		if i < len(b.StateTokens) && b.StateTokens[i] {
			reasons = append(reasons, ReasonState)
		}
	}

	return reasons
}

// RecencyBonus decays linearly from WeightRecentActivity at now to zero after the window.
// Future dates count as now; unknown dates earn nothing.
func RecencyBonus(last *time.Time, now time.Time) float64 {
	if last == nil {
		return 0
	}
	elapsed := now.Unix() - last.Unix()
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > RecencyWindowSeconds {
		return 0
	}
	months := float64(elapsed) / float64(RecencySecondsPerMonth)
	return float64(float64(WeightRecentActivity) * (1 - months/float64(RecencyWindowMonths)))
}

// MatchTokens finds the best rule each token satisfies against a normalized field
func MatchTokens(field string, tokens []string) []TokenMatch {
	if field == "" || len(tokens) == 0 {
		return nil
	}

	words := make([]string, 0, 4)
	for _, w := range strings.Fields(field) {
		if utf8.RuneCountInString(w) > 1 {
			words = append(words, w)
		}
	}

	matches := make([]TokenMatch, len(tokens))
	for i, token := range tokens {
		matches[i] = matchToken(field, words, token)
	}
	return matches
}

// HasPrefixToken reports whether the field starts with the first query token
func HasPrefixToken(field, first string) bool {
	return first != "" && field != "" && strings.HasPrefix(field, first)
}

func matchToken(field string, words []string, token string) TokenMatch {
	for _, w := range words {
		if w == token {
			return TokenWordExact
		}
	}
	for _, w := range words {
		if strings.HasPrefix(w, token) {
			return TokenStartsWith
		}
	}
	if strings.Contains(field, token) {
		return TokenContains
	}
	return TokenNoMatch
}

func compareField(field, query string) FieldMatch {
	switch {
	case query == "":
		return FieldNoMatch
	case field == query:
		return FieldExact
	case strings.Contains(field, query):
		return FieldPartial
	default:
		return FieldNoMatch
	}
}

func containsTokens(field string, tokens []string) []bool {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]bool, len(tokens))
	if field == "" {
		return out
	}
	for i, token := range tokens {
		out[i] = strings.Contains(field, token)
	}
	return out
}

func textScore(matches []TokenMatch, prefix bool) int {
	score := 0
	for _, m := range matches {
		score += m.Weight()
	}
	if prefix {
		score += WeightPrefixBonus
	}
	return score
}

func countMatches(matches []TokenMatch) int {
	n := 0
	for _, m := range matches {
		if m != TokenNoMatch {
			n++
		}
	}
	return n
}

func appendTokenReasons(reasons []string, field string, matches []TokenMatch) []string {
	for _, m := range matches {
		if m != TokenNoMatch {
			reasons = append(reasons, m.Reason(field))
		}
	}
	return reasons
}
