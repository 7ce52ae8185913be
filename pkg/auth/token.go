package auth

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/tendant/gymdesk/pkg/domain"
)

// DefaultTokenExpiry applies when the configured expiry cannot be parsed.
const DefaultTokenExpiry = 30 * 24 * time.Hour

var expiryPattern = regexp.MustCompile(`^(\d+)([dhms])$`)

// ParseExpiry parses the "<int><d|h|m|s>" grammar, e.g. "30d" or "45s".
// Anything else yields DefaultTokenExpiry.
func ParseExpiry(s string) time.Duration {
	m := expiryPattern.FindStringSubmatch(s)
	if m == nil {
		return DefaultTokenExpiry
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return DefaultTokenExpiry
	}
	switch m[2] {
	case "d":
		return time.Duration(n) * 24 * time.Hour
	case "h":
		return time.Duration(n) * time.Hour
	case "m":
		return time.Duration(n) * time.Minute
	default:
		return time.Duration(n) * time.Second
	}
}

// TokenConfig configures token signing.
type TokenConfig struct {
	Secret []byte
	Expiry string
	Issuer string
}

// Claims is the fixed payload of an access token.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID   `json:"id"`
	Email  string      `json:"email"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
}

func (c *Claims) validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("missing id claim")
	}
	if c.Email == "" {
		return errors.New("missing email claim")
	}
	if !c.Role.Valid() {
		return errors.New("unknown role claim")
	}
	return nil
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer from cfg.
func NewTokenIssuer(cfg TokenConfig) *TokenIssuer {
	return &TokenIssuer{
		secret: cfg.Secret,
		ttl:    ParseExpiry(cfg.Expiry),
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// TTL returns the lifetime of issued tokens.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Generate issues a token asserting the principal's identity and role.
func (t *TokenIssuer) Generate(p *domain.Principal) (string, error) {
	if p == nil {
		return "", oops.Code("TOKEN_PRINCIPAL_MISSING").Errorf("cannot issue a token without a principal")
	}

	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID().String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		UserID: p.ID(),
		Email:  p.Email(),
		Name:   p.Name(),
		Role:   p.Role(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Verify checks signature, expiry and claim shape. Every failure is domain.ErrInvalidToken.
func (t *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	if err := claims.validate(); err != nil {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
