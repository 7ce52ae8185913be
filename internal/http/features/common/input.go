// Package common holds request checks shared by the feature handlers.
package common

import (
	"github.com/tendant/gymdesk/pkg/auth"
	"github.com/tendant/gymdesk/pkg/domain"
)

const (
	nameMinLength = 2
	nameMaxLength = 100
)

// InputRules bundles the configurable checks applied to account input.
type InputRules struct {
	Passwords       *auth.PasswordPolicy
	BlockDisposable bool
}

// Account sanitizes name in place and checks name and email.
func (in InputRules) Account(name *string, email string) error {
	*name = auth.SanitizeName(*name)
	if err := auth.ValidateStringLength("name", *name, nameMinLength, nameMaxLength); err != nil {
		return err
	}
	return auth.ValidateEmail(email, in.BlockDisposable)
}

// Password checks password against the configured policy. A nil policy accepts anything.
func (in InputRules) Password(password string) error {
	if in.Passwords == nil {
		return nil
	}
	return in.Passwords.Validate(password)
}

// Required reports the first empty value as a validation error naming its field.
// Pairs alternate field name and value.
func Required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return domain.NewError(domain.ErrValidation, "%s is required", pairs[i]).WithField(pairs[i])
		}
	}
	return nil
}
