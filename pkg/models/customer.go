package models

import "time"

// NoMatchReason is the primary reason of a candidate that matched nothing
const NoMatchReason = "no match"

// NormalizedView is the searchable projection of a CustomerRecord. It is derived, never persisted as-is.
type NormalizedView struct {
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	EmailLower     string     `json:"email_lower"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	Status         string     `json:"status"`
	FullPhone      string     `json:"full_phone"`
	CanonicalPhone string     `json:"canonical_phone"`
	HasEmail       bool       `json:"has_email"`
	HasPhone       bool       `json:"has_phone"`
	IsActive       bool       `json:"is_active"`
	LastActivity   *time.Time `json:"last_activity,omitempty"`
}

// ScoredCandidate wraps a record with its relevance for one query. The record is never modified.
type ScoredCandidate struct {
	Record        CustomerRecord `json:"record"`
	View          NormalizedView `json:"-"`
	Score         int            `json:"relevance_score"`
	Reasons       []string       `json:"match_reasons"`
	PrimaryReason string         `json:"primary_match"`
}

// NewScoredCandidate builds a candidate and derives its primary reason
func NewScoredCandidate(record CustomerRecord, view NormalizedView, score int, reasons []string) ScoredCandidate {
	primary := NoMatchReason
	if len(reasons) > 0 {
		primary = reasons[0]
	}
	if reasons == nil {
		reasons = []string{}
	}
	return ScoredCandidate{
		Record:        record,
		View:          view,
		Score:         score,
		Reasons:       reasons,
		PrimaryReason: primary,
	}
}

// IdentityKind tells which field a client identity key was derived from
type IdentityKind string

const (
	IdentityEmail IdentityKind = "email"
	IdentityPhone IdentityKind = "phone"
	IdentityName  IdentityKind = "name"
)

// HistoryEntry is one transaction inside a CustomerGroup
type HistoryEntry struct {
	ID                 string     `json:"id"`
	TransactionID      string     `json:"transaction_id,omitempty"`
	Platform           Platform   `json:"platform"`
	Product            string     `json:"product"`
	Plan               string     `json:"plan,omitempty"`
	Status             string     `json:"status"`
	Value              float64    `json:"value"`
	PaymentMethod      string     `json:"payment_method,omitempty"`
	SignupDate         *time.Time `json:"signup_date,omitempty"`
	CancellationDate   *time.Time `json:"cancellation_date,omitempty"`
	FreePeriod         string     `json:"free_period,omitempty"`
	FreePeriodDuration string     `json:"free_period_duration,omitempty"`
	IsActive           bool       `json:"is_active"`
}

// CustomerGroup is the customer level view of one or more ranked transactions
type CustomerGroup struct {
	Key           string       `json:"key"`
	KeyKind       IdentityKind `json:"key_kind"`
	LowConfidence bool         `json:"low_confidence"`

	Name           string   `json:"name"`
	Email          string   `json:"email"`
	AreaCode       string   `json:"area_code"`
	Phone          string   `json:"phone"`
	FormattedPhone string   `json:"formatted_phone,omitempty"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	Product        string   `json:"product"`
	Status         string   `json:"status"`
	Platform       Platform `json:"platform"`
	IsActive       bool     `json:"is_active"`

	Score         int      `json:"relevance_score"`
	Reasons       []string `json:"match_reasons"`
	PrimaryReason string   `json:"primary_match"`

	History             []HistoryEntry `json:"history"`
	TotalTransactions   int            `json:"total_transactions"`
	TotalValue          float64        `json:"total_value"`
	ActiveSubscriptions int            `json:"active_subscriptions"`
	Platforms           []Platform     `json:"platforms"`
}
