package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the signed payload carried by every bearer token.
type Claims struct {
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	AccountID string      `json:"account_id"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller extracted from a valid token.
type Principal struct {
	Username  string
	Name      string
	Role      domain.Role
	AccountID string
	ExpiresAt time.Time
}

type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

type TokenManager struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
	now        func() time.Time
}

func NewTokenManager(signingKey string, issuer string, audience string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Tests use it to mint expired tokens.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	clone := *m
	clone.now = now
	return &clone
}

func (m *TokenManager) Issue(credential domain.Credential, displayName string) (IssuedToken, error) {
	issuedAt := m.now().UTC()
	expiresAt := issuedAt.Add(m.ttl)

	claims := Claims{
		Name:      displayName,
		Role:      credential.Role,
		AccountID: credential.AccountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   credential.Username,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingKey)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}

	return IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

func (m *TokenManager) Parse(raw string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Principal{}, ErrInvalidToken
	}
	if !claims.Role.Valid() || claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}

	return Principal{
		Username:  claims.Subject,
		Name:      claims.Name,
		Role:      claims.Role,
		AccountID: claims.AccountID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
