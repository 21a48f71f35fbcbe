package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/diogoqz/api-consulta-hotmart/pkg/grouping"
	"github.com/diogoqz/api-consulta-hotmart/pkg/matching"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/ranking"
)

// Policy holds the business rules that vary per deployment
type Policy struct {
	Active                 matching.ActivePolicyConfig `yaml:"active"`
	AuthoritativePlatforms []models.Platform           `yaml:"authoritative_platforms" validate:"dive,oneof=hotmart cakto"`
	PhoneCountry           string                      `yaml:"phone_country" validate:"required"`
	Search                 ranking.Options             `yaml:"search"`
	APIMinScore            int                         `yaml:"api_min_score" validate:"min=0"`
}

// DefaultPolicy is used when no policy file is configured
func DefaultPolicy() *Policy {
	return &Policy{
		Active:                 matching.DefaultActiveConfig(),
		AuthoritativePlatforms: []models.Platform{models.PlatformCakto, models.PlatformHotmart},
		PhoneCountry:           "BR",
		Search:                 ranking.DefaultOptions(),
		APIMinScore:            11,
	}
}

// LoadPolicy reads the YAML policy at path over the defaults. An empty path returns the defaults.
func LoadPolicy(path string) (*Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read policy file %s", path)
	}
	if err := yaml.Unmarshal(raw, policy); err != nil {
		return nil, errors.Wrapf(err, "failed to parse policy file %s", path)
	}
	if err := validator.New().Struct(policy); err != nil {
		return nil, errors.Wrapf(err, "invalid policy file %s", path)
	}
	return policy, nil
}

// ActivePolicy builds the active status policy
func (p *Policy) ActivePolicy() *matching.ActivePolicy {
	return matching.NewActivePolicy(p.Active)
}

// GroupingPolicy turns the authoritative platform order into priorities, first is most trusted
func (p *Policy) GroupingPolicy() grouping.Policy {
	priorities := make([]grouping.PlatformPriority, 0, len(p.AuthoritativePlatforms))
	for i, platform := range p.AuthoritativePlatforms {
		priorities = append(priorities, grouping.PlatformPriority{
			Platform: platform,
			Priority: len(p.AuthoritativePlatforms) - i,
		})
	}
	return grouping.Policy{Priorities: priorities}
}
