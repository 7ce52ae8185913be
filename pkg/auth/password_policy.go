package auth

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/tendant/gymdesk/internal/config"
	"github.com/tendant/gymdesk/pkg/domain"
)

// PasswordPolicy is the complexity a new local password must meet.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// NewPasswordPolicy creates a PasswordPolicy from config.
func NewPasswordPolicy(cfg config.PasswordPolicyConfig) *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:        cfg.MinLength,
		RequireUppercase: cfg.RequireUppercase,
		RequireLowercase: cfg.RequireLowercase,
		RequireNumber:    cfg.RequireNumber,
		RequireSpecial:   cfg.RequireSpecial,
	}
}

type passwordRule struct {
	enabled bool
	holds   func(string) bool
	label   string
}

func (p *PasswordPolicy) rules() []passwordRule {
	return []passwordRule{
		{p.RequireUppercase, hasRune(unicode.IsUpper), "one uppercase letter"},
		{p.RequireLowercase, hasRune(unicode.IsLower), "one lowercase letter"},
		{p.RequireNumber, hasRune(unicode.IsDigit), "one number"},
		{p.RequireSpecial, hasRune(isSpecial), "one special character"},
	}
}

// Validate reports the first requirement password misses.
func (p *PasswordPolicy) Validate(password string) error {
	if p.MinLength > 0 && len([]rune(password)) < p.MinLength {
		return domain.NewError(domain.ErrValidation, "password must be at least %d characters long", p.MinLength).WithField("password")
	}
	for _, r := range p.rules() {
		if r.enabled && !r.holds(password) {
			return domain.NewError(domain.ErrValidation, "password must contain at least %s", r.label).WithField("password")
		}
	}
	return nil
}

// Describe returns the policy as a sentence for clients.
func (p *PasswordPolicy) Describe() string {
	var parts []string
	if p.MinLength > 0 {
		parts = append(parts, "at least "+strconv.Itoa(p.MinLength)+" characters")
	}
	for _, r := range p.rules() {
		if r.enabled {
			parts = append(parts, r.label)
		}
	}
	if len(parts) == 0 {
		return "No password requirements"
	}
	return "Password must contain " + strings.Join(parts, ", ")
}

func hasRune(pred func(rune) bool) func(string) bool {
	return func(s string) bool {
		return strings.IndexFunc(s, pred) >= 0
	}
}

func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}
