// Package token encodes and decodes the stateless session token. There is
// no server-side session store: expiry is the only invalidation mechanism.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers signature mismatch, expiry and missing subject.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the normalized payload of a session token.
type Claims struct {
	Subject     string
	Role        string
	Permissions []string
}

// Codec signs and verifies session tokens with a fixed secret. The secret is
// threaded in at construction, never read from the environment ad hoc.
type Codec struct {
	secret []byte
	Now    func() time.Time
}

func NewCodec(secret string) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret required")
	}
	return &Codec{secret: []byte(secret), Now: time.Now}, nil
}

// wireClaims accepts both historical payload shapes: the sub-based one and
// the legacy id-based one.
type wireClaims struct {
	jwt.RegisteredClaims
	LegacyID    string   `json:"id,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Issue encodes claims into a signed token valid for ttl.
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, error) {
	if claims.Subject == "" {
		return "", errors.New("encode token: subject required")
	}
	if ttl <= 0 {
		return "", errors.New("encode token: ttl must be positive")
	}
	now := c.Now().UTC()
	wc := wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:        claims.Role,
		Permissions: claims.Permissions,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wc).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return signed, nil
}

// Verify decodes a token and normalizes both claim shapes. A missing role
// defaults to "user" and missing permissions to an empty set.
func (c *Codec) Verify(raw string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return c.Now() }),
	)
	wc := &wireClaims{}
	parsed, err := parser.ParseWithClaims(raw, wc, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	subject := wc.Subject
	if subject == "" {
		subject = wc.LegacyID
	}
	if subject == "" {
		return Claims{}, ErrInvalidToken
	}
	role := wc.Role
	if role == "" {
		role = "user"
	}
	perms := wc.Permissions
	if perms == nil {
		perms = []string{}
	}
	return Claims{Subject: subject, Role: role, Permissions: perms}, nil
}
