// Package token issues and verifies the self-contained JWTs carried in the
// auth cookie. Verification never touches storage.
package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/fastygo/taskmanager/domain"
)

// Config holds the process-wide signing settings. It is copied into the
// Issuer and Verifier at construction and never mutated afterwards.
type Config struct {
	Secret    string
	Algorithm string
	TTL       time.Duration
	Issuer    string
}

// Validate reports configuration that would make signing unsafe or impossible.
func (c Config) Validate() error {
	if c.Secret == "" {
		return errors.New("jwt secret is required")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("jwt ttl must be positive, got %s", c.TTL)
	}
	if _, err := hmacMethod(c.Algorithm); err != nil {
		return err
	}
	return nil
}

// Claims is the JWT payload: sub carries the email, id the user id.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Token is a freshly minted credential.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer signs tokens for authenticated identities.
type Issuer struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	issuer string
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	method, _ := hmacMethod(cfg.Algorithm)
	return &Issuer{
		secret: []byte(cfg.Secret),
		method: method,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
	}, nil
}

// TTL returns the lifetime given to issued tokens.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a token for identity valid from now until now+TTL.
func (i *Issuer) Issue(identity domain.Identity, now time.Time) (Token, error) {
	if identity.IsZero() || identity.Email == "" {
		return Token{}, errors.New("identity must carry a user id and email")
	}

	expiresAt := now.Add(i.ttl)
	claims := Claims{
		UserID: identity.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Email,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{
		Value:     signed,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verifier checks tokens produced by an Issuer sharing the same Config.
type Verifier struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewVerifier validates cfg and returns a Verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	method, _ := hmacMethod(cfg.Algorithm)
	return &Verifier{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		// Time based claims are checked against the caller's clock below.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Verify parses tokenString and returns its identity. Checks run in order:
// structure, signature, expiry, claims. The first failure is returned as an
// *Error.
func (v *Verifier) Verify(tokenString string, now time.Time) (domain.Identity, error) {
	if tokenString == "" {
		return domain.Identity{}, newError(KindMalformed, errors.New("empty token"))
	}

	parts := strings.SplitN(tokenString, ".", 3)
	if len(parts) != 3 {
		return domain.Identity{}, newError(KindMalformed, errors.New("token must have three segments"))
	}
	if _, _, err := v.parser.ParseUnverified(parts[0]+"."+parts[1]+".", &Claims{}); err != nil {
		return domain.Identity{}, newError(KindMalformed, err)
	}
	// The jwt parser decodes segments leniently, so non-zero padding bits in
	// the last signature character would still verify.
	if _, err := base64.RawURLEncoding.Strict().DecodeString(parts[2]); err != nil {
		return domain.Identity{}, newError(KindInvalidSignature, fmt.Errorf("signature encoding: %w", err))
	}

	var claims Claims
	_, err := v.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return domain.Identity{}, newError(KindMalformed, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return domain.Identity{}, newError(KindInvalidSignature, err)
		default:
			return domain.Identity{}, newError(KindMalformed, err)
		}
	}

	if claims.ExpiresAt == nil {
		return domain.Identity{}, newError(KindExpired, errors.New("missing exp claim"))
	}
	if !now.Before(claims.ExpiresAt.Time) {
		return domain.Identity{}, newError(KindExpired, fmt.Errorf("expired at %s", claims.ExpiresAt.Time.UTC().Format(time.RFC3339)))
	}

	if claims.Subject == "" || claims.UserID == "" {
		return domain.Identity{}, newError(KindInvalidClaims, errors.New("missing subject"))
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return domain.Identity{}, newError(KindInvalidClaims, fmt.Errorf("unexpected issuer %q", claims.Issuer))
	}

	return domain.Identity{UserID: claims.UserID, Email: claims.Subject}, nil
}

func hmacMethod(alg string) (*jwt.SigningMethodHMAC, error) {
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", alg)
	}
	return method, nil
}
