// Package matching scores customer records against classified queries
package matching

// Relevance weights. Every Scorer adapter must apply exactly these values.
const (
	WeightExact          = 100
	WeightEmailPartial   = 90
	WeightPhonePartial   = 70
	WeightStartsWith     = 80
	WeightWordExact      = 100
	WeightPartial        = 40
	WeightPrefixBonus    = 20
	WeightCity           = 15
	WeightState          = 10
	WeightActive         = 15
	WeightHasEmail       = 5
	WeightHasPhone       = 5
	WeightRecentActivity = 20
	WeightMultipleMatch  = 25

	// EmailTextFactor scales the email field score in text queries
	EmailTextFactor = 0.8

	// RecencySecondsPerMonth is the month length used by the recency decay
	RecencySecondsPerMonth = 30 * 24 * 60 * 60
	// RecencyWindowMonths is how long the recency bonus takes to decay to zero
	RecencyWindowMonths = 6
	// RecencyWindowSeconds is RecencyWindowMonths expressed in seconds
	RecencyWindowSeconds = RecencyWindowMonths * RecencySecondsPerMonth

	// HighConfidenceScore is the score from which a match counts as high confidence
	HighConfidenceScore = 80
)

// Match reasons, in the order rules can fire
const (
	ReasonPhoneExact   = "phone exact"
	ReasonPhonePartial = "phone partial"
	ReasonEmailExact   = "email exact"
	ReasonEmailPartial = "email partial"
	ReasonCity         = "City"
	ReasonState        = "State"

	FieldName  = "Name"
	FieldEmail = "Email"
)

// TokenMatch is the best rule a query token satisfied against one text field
type TokenMatch int

const (
	TokenNoMatch TokenMatch = iota
	TokenContains
	TokenStartsWith
	TokenWordExact
)

// Weight returns the score contributed by the match
func (m TokenMatch) Weight() int {
	switch m {
	case TokenWordExact:
		return WeightWordExact
	case TokenStartsWith:
		return WeightStartsWith
	case TokenContains:
		return WeightPartial
	default:
		return 0
	}
}

// Reason returns the reason tag for the match against field
func (m TokenMatch) Reason(field string) string {
	switch m {
	case TokenWordExact:
		return field + " - word exact"
	case TokenStartsWith:
		return field + " - starts with"
	case TokenContains:
		return field + " - contains"
	default:
		return ""
	}
}
