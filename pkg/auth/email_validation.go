package auth

import (
	"net/mail"
	"strings"

	"github.com/tendant/gymdesk/pkg/domain"
)

// Throwaway inbox providers refused when BlockDisposable is set.
var disposableDomains = map[string]bool{
	"tempmail.com":      true,
	"10minutemail.com":  true,
	"guerrillamail.com": true,
	"mailinator.com":    true,
	"throwaway.email":   true,
	"yopmail.com":       true,
}

const maxEmailLength = 254 // RFC 5321

func invalidEmail(msg string) error {
	return &domain.Error{Kind: domain.ErrValidation, Message: msg, Field: "email"}
}

// ValidateEmail checks that email is a single bare address of sane length.
func ValidateEmail(email string, blockDisposable bool) error {
	email = NormalizeEmail(email)
	if email == "" {
		return invalidEmail("email is required")
	}
	if len(email) > maxEmailLength {
		return invalidEmail("email is too long")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return invalidEmail("email is not a valid address")
	}

	host := email[strings.LastIndexByte(email, '@')+1:]
	if !strings.Contains(host, ".") {
		return invalidEmail("email is not a valid address")
	}
	if blockDisposable && disposableDomains[host] {
		return invalidEmail("disposable email addresses are not allowed")
	}
	return nil
}

// NormalizeEmail lowercases and trims an email. Stores compare emails in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
