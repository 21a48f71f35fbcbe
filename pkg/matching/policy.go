package matching

import (
	"strings"

	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/normalizers"
)

// DefaultActiveTokens are the status fragments that mark a sale as active on any platform
var DefaultActiveTokens = []string{"ativo", "active", "trial", "renovada", "renewed", "paid", "approved"}

// DefaultInactiveTokens override active tokens they contain ("inativo" contains "ativo")
var DefaultInactiveTokens = []string{"inativo", "inactive", "unpaid"}

// DefaultPlatformTokens are the positive tokens of each known platform
var DefaultPlatformTokens = map[models.Platform][]string{
	models.PlatformHotmart: {"ativo", "active", "trial", "renovada", "renewed", "paid", "approved"},
	models.PlatformCakto:   {"paid", "approved", "ativo", "active"},
}

// ActivePolicy decides whether a status text means an active subscription.
// Status and tokens are compared in normalized form by substring.
type ActivePolicy struct {
	platforms map[models.Platform][]string
	fallback  []string
	negative  []string
}

// ActivePolicyConfig is the declarative form of an ActivePolicy
type ActivePolicyConfig struct {
	// Platforms overrides the positive tokens of individual platforms
	Platforms map[models.Platform][]string `yaml:"platforms" json:"platforms"`
	// Tokens are the positive tokens of platforms without an override
	Tokens []string `yaml:"tokens" json:"tokens"`
	// Negative tokens always win over positive ones
	Negative []string `yaml:"negative" json:"negative"`
}

// DefaultActiveConfig returns a fresh copy of the default tokens, safe to decode a policy file over
func DefaultActiveConfig() ActivePolicyConfig {
	platforms := make(map[models.Platform][]string, len(DefaultPlatformTokens))
	for platform, tokens := range DefaultPlatformTokens {
		platforms[platform] = append([]string(nil), tokens...)
	}
	return ActivePolicyConfig{
		Platforms: platforms,
		Tokens:    append([]string(nil), DefaultActiveTokens...),
		Negative:  append([]string(nil), DefaultInactiveTokens...),
	}
}

// DefaultActivePolicy is the policy built from DefaultActiveConfig
func DefaultActivePolicy() *ActivePolicy {
	return NewActivePolicy(DefaultActiveConfig())
}

// NewActivePolicy builds a policy, filling empty token lists with the defaults
func NewActivePolicy(cfg ActivePolicyConfig) *ActivePolicy {
	p := &ActivePolicy{
		platforms: make(map[models.Platform][]string, len(cfg.Platforms)),
		fallback:  normalizeTokens(cfg.Tokens),
		negative:  normalizeTokens(cfg.Negative),
	}
	if len(p.fallback) == 0 {
		p.fallback = normalizeTokens(DefaultActiveTokens)
	}
	if len(p.negative) == 0 {
		p.negative = normalizeTokens(DefaultInactiveTokens)
	}
	for platform, tokens := range cfg.Platforms {
		if normalized := normalizeTokens(tokens); len(normalized) > 0 {
			p.platforms[platform] = normalized
		}
	}
	return p
}

// Tokens returns the positive tokens that apply to platform
func (p *ActivePolicy) Tokens(platform models.Platform) []string {
	if tokens, ok := p.platforms[platform]; ok {
		return tokens
	}
	return p.fallback
}

// Fallback returns the positive tokens of platforms without an override
func (p *ActivePolicy) Fallback() []string {
	return p.fallback
}

// Negative returns the tokens that veto an active status
func (p *ActivePolicy) Negative() []string {
	return p.negative
}

// Overrides returns the platforms with their own token list
func (p *ActivePolicy) Overrides() map[models.Platform][]string {
	return p.platforms
}

// IsActive reports whether status counts as active for platform
func (p *ActivePolicy) IsActive(platform models.Platform, status string) bool {
	return p.IsActiveNormalized(platform, normalizers.Text(status))
}

// IsActiveNormalized is IsActive for a status already passed through normalizers.Text
func (p *ActivePolicy) IsActiveNormalized(platform models.Platform, status string) bool {
	if status == "" {
		return false
	}
	for _, token := range p.negative {
		if strings.Contains(status, token) {
			return false
		}
	}
	for _, token := range p.Tokens(platform) {
		if strings.Contains(status, token) {
			return true
		}
	}
	return false
}

func normalizeTokens(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		n := normalizers.Text(t)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
