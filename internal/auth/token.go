package auth

import (
	"errors"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/helpdesk-labs/ticketing/internal/domain"
)

// Token verification failures. They never cross the service boundary as-is.
var (
	ErrTokenExpired      = errors.New("capability token expired")
	ErrTokenBadSignature = errors.New("capability token signature invalid")
	ErrTokenMalformed    = errors.New("capability token malformed")
)

// Claims describes the capability token payload.
type Claims struct {
	UserID int64       `json:"user"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenClaims is the identity asserted by a verified token.
type TokenClaims struct {
	Subject int64
	Role    domain.Role
}

// TokenIssuer mints capability tokens on behalf of a resolved principal.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer builds an issuer with a fixed validity window.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// TTL returns the validity window of issued tokens.
func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}

// Issue signs a token for principal. The output depends only on principal and now.
// JWT times have whole-second precision: iat rounds down and exp rounds up, so
// the token stays valid for at least ttl after now.
func (ti *TokenIssuer) Issue(principal domain.Principal, now time.Time) (domain.CapabilityToken, error) {
	issuedAt := now.Truncate(time.Second)
	expiresAt := ceilSecond(now.Add(ti.ttl))

	claims := &Claims{
		UserID: principal.ID,
		Role:   principal.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(principal.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return domain.CapabilityToken{}, err
	}
	return domain.CapabilityToken{
		Value:     signed,
		Subject:   principal.ID,
		Role:      principal.Role,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

func ceilSecond(t time.Time) time.Time {
	if down := t.Truncate(time.Second); !down.Equal(t) {
		return down.Add(time.Second)
	}
	return t
}

// TokenVerifier checks signature and expiry only. iat is informational, so a
// verifier whose clock lags the issuer still accepts fresh tokens.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier builds a verifier for tokens signed with secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify validates tokenStr as of now and returns the asserted identity.
func (tv *TokenVerifier) Verify(tokenStr string, now time.Time) (TokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return tv.secret, nil
	})
	if err != nil {
		return TokenClaims{}, classifyTokenError(err)
	}

	if claims.UserID < 1 || !claims.Role.Valid() {
		return TokenClaims{}, ErrTokenMalformed
	}
	if claims.Subject != "" && claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return TokenClaims{}, ErrTokenMalformed
	}
	return TokenClaims{Subject: claims.UserID, Role: claims.Role}, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenBadSignature
	default:
		return ErrTokenMalformed
	}
}
