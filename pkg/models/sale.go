package models

import (
	"strings"
	"time"
)

// Platform identifies the sales system a record was exported from
type Platform string

const (
	// PlatformHotmart is the Hotmart subscriptions export
	PlatformHotmart Platform = "hotmart"
	// PlatformCakto is the Cakto sales export
	PlatformCakto Platform = "cakto"
)

// Platforms lists every supported platform
var Platforms = []Platform{PlatformHotmart, PlatformCakto}

// ParsePlatform resolves a platform name case-insensitively
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Platforms {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// keyDateLayout formats the signup date inside fallback record keys
const keyDateLayout = "2006-01-02 15:04:05"

// CustomerRecord is one sale row as exported by a platform
type CustomerRecord struct {
	Platform      Platform `json:"platform" db:"platform"`
	TransactionID string   `json:"transaction_id,omitempty" db:"transaction_id"`

	Name     string `json:"name" db:"name"`
	Email    string `json:"email" db:"email"`
	AreaCode string `json:"area_code" db:"area_code"`
	Phone    string `json:"phone" db:"phone"`
	City     string `json:"city" db:"city"`
	State    string `json:"state" db:"state"`

	Product            string  `json:"product" db:"product"`
	Plan               string  `json:"plan,omitempty" db:"plan"`
	Value              float64 `json:"value" db:"value"`
	PaymentMethod      string  `json:"payment_method,omitempty" db:"payment_method"`
	Status             string  `json:"status" db:"status"`
	FreePeriod         string  `json:"free_period,omitempty" db:"free_period"`
	FreePeriodDuration string  `json:"free_period_duration,omitempty" db:"free_period_duration"`

	SignupDate       *time.Time `json:"signup_date,omitempty" db:"signup_date"`
	CancellationDate *time.Time `json:"cancellation_date,omitempty" db:"cancellation_date"`
	RefundDate       *time.Time `json:"refund_date,omitempty" db:"refund_date"`
	ChargebackDate   *time.Time `json:"chargeback_date,omitempty" db:"chargeback_date"`
	ScheduledDate    *time.Time `json:"scheduled_date,omitempty" db:"scheduled_date"`
	ReleasedDate     *time.Time `json:"released_date,omitempty" db:"released_date"`
}

// Key returns the transaction identifier, or name-product-signup for legacy rows without one
func (r CustomerRecord) Key() string {
	if id := strings.TrimSpace(r.TransactionID); id != "" {
		return id
	}
	signup := ""
	if r.SignupDate != nil {
		signup = r.SignupDate.UTC().Format(keyDateLayout)
	}
	return r.Name + "-" + r.Product + "-" + signup
}

// LastActivity is the signup date, or the cancellation date when no signup was recorded
func (r CustomerRecord) LastActivity() *time.Time {
	if r.SignupDate != nil {
		return r.SignupDate
	}
	return r.CancellationDate
}
