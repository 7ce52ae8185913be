package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/tendant/gymdesk/pkg/domain"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name            string
		email           string
		blockDisposable bool
		wantErr         bool
	}{
		{name: "valid email", email: "test@example.com"},
		{name: "valid email with subdomain", email: "test@mail.example.com"},
		{name: "valid email with plus", email: "test+tag@example.com"},
		{name: "mixed case is normalized", email: "  Test@Example.COM "},
		{name: "empty email", email: "", wantErr: true},
		{name: "invalid - no @", email: "invalid.com", wantErr: true},
		{name: "invalid - no domain", email: "test@", wantErr: true},
		{name: "invalid - no local part", email: "@example.com", wantErr: true},
		{name: "invalid - bare host", email: "test@localhost", wantErr: true},
		{name: "invalid - display name", email: "Test <test@example.com>", wantErr: true},
		{name: "too long", email: strings.Repeat("a", 300) + "@example.com", wantErr: true},
		{name: "disposable email - blocked", email: "test@tempmail.com", blockDisposable: true, wantErr: true},
		{name: "disposable email - allowed", email: "test@tempmail.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email, tt.blockDisposable)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateEmail() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var derr *domain.Error
			if !errors.As(err, &derr) || derr.Field != "email" || !errors.Is(err, domain.ErrValidation) {
				t.Errorf("ValidateEmail() error = %#v, want validation error on email", err)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{name: "lowercase", email: "Test@Example.COM", want: "test@example.com"},
		{name: "trim spaces", email: "  test@example.com  ", want: "test@example.com"},
		{name: "both", email: "  Test@Example.COM  ", want: "test@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeEmail(tt.email); got != tt.want {
				t.Errorf("NormalizeEmail() = %v, want %v", got, tt.want)
			}
		})
	}
}
