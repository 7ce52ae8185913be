package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tendant/gymdesk/pkg/domain"
)

// SanitizeName trims a display name, collapses inner whitespace and drops control characters.
func SanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, name)
	return strings.Join(strings.Fields(name), " ")
}

// ValidateStringLength checks the rune length of value against min and max.
// A zero bound is not enforced.
func ValidateStringLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if min > 0 && n < min {
		return domain.NewError(domain.ErrValidation, "%s must be at least %d characters long", field, min).WithField(field)
	}
	if max > 0 && n > max {
		return domain.NewError(domain.ErrValidation, "%s must be at most %d characters long", field, max).WithField(field)
	}
	return nil
}
