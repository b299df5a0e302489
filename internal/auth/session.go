// Package auth issues and verifies officer sessions, hashes passwords and
// mints bot API tokens.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session errors.
var (
	ErrSessionExpired = errors.New("session expired")
	ErrSessionInvalid = errors.New("invalid session")
)

const issuer = "mdt"

// Claims carries the officer identity inside a session token.
type Claims struct {
	OfficerID   uint   `json:"oid"`
	Username    string `json:"usr"`
	DisplayName string `json:"name"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated officer attached to a request.
type Principal struct {
	OfficerID   uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// IDString returns the officer ID as used for idempotency and rate limit keys.
func (p Principal) IDString() string { return strconv.FormatUint(uint64(p.OfficerID), 10) }

// Sessions signs and validates HS256 session tokens.
type Sessions struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSessions returns a session signer. secret must be non-empty.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Sessions{key: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of issued sessions.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue signs a session for p and returns the token with its expiry.
func (s *Sessions) Issue(p Principal) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		OfficerID:   p.OfficerID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Role:        p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.IDString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	})
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses and validates a session token.
func (s *Sessions) Verify(token string) (Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.key, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrSessionExpired
		}
		return Principal{}, ErrSessionInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.OfficerID == 0 {
		return Principal{}, ErrSessionInvalid
	}
	return Principal{
		OfficerID:   claims.OfficerID,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
	}, nil
}
