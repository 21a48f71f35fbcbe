package matching

import (
	"strings"

	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/normalizers"
)

// ViewBuilder derives the NormalizedView of records
type ViewBuilder struct {
	policy *ActivePolicy
	phones normalizers.PhoneStrategy
}

// NewViewBuilder creates a ViewBuilder. Nil arguments fall back to the defaults.
func NewViewBuilder(policy *ActivePolicy, phones normalizers.PhoneStrategy) *ViewBuilder {
	if policy == nil {
		policy = DefaultActivePolicy()
	}
	if phones == nil {
		phones = normalizers.BrazilPhone{}
	}
	return &ViewBuilder{policy: policy, phones: phones}
}

// Policy returns the active status policy of the builder
func (b *ViewBuilder) Policy() *ActivePolicy {
	return b.policy
}

// Phones returns the phone strategy of the builder
func (b *ViewBuilder) Phones() normalizers.PhoneStrategy {
	return b.phones
}

// Build derives the view. The record is passed by value and never modified.
func (b *ViewBuilder) Build(r models.CustomerRecord) models.NormalizedView {
	status := normalizers.Text(r.Status)
	return models.NormalizedView{
		Name:           normalizers.Text(r.Name),
		Email:          normalizers.Text(r.Email),
		EmailLower:     normalizers.Email(r.Email),
		City:           normalizers.Text(r.City),
		State:          normalizers.Text(r.State),
		Status:         status,
		FullPhone:      normalizers.FullPhone(r.AreaCode, r.Phone),
		CanonicalPhone: b.phones.Canonical(r.AreaCode, r.Phone),
		HasEmail:       strings.TrimSpace(r.Email) != "",
		HasPhone:       strings.TrimSpace(r.Phone) != "",
		IsActive:       b.policy.IsActiveNormalized(r.Platform, status),
		LastActivity:   r.LastActivity(),
	}
}
