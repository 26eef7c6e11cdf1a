// Package token issues and validates the short-lived access tokens handed
// out at login. One process-wide HS256 secret signs everything; rotating it
// invalidates every outstanding token.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("invalid token")
)

// DefaultTTL is deliberately short: long enough to exercise a protected
// call, short enough that expiry is observable.
const DefaultTTL = 30 * time.Second

type Service struct {
	Secret []byte
	TTL    time.Duration
}

func New(secret []byte) *Service {
	return &Service{Secret: secret, TTL: DefaultTTL}
}

// Issue signs a token binding userID as its subject, valid for s.TTL.
func (s *Service) Issue(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.Secret)
}

// Validate verifies signature and expiry and returns the subject user id.
// Expired tokens fail with ErrExpired, everything else with ErrInvalid.
func (s *Service) Validate(raw string) (uint, error) {
	t, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signature method: %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrExpired
		}
		return 0, ErrInvalid
	}

	claims, ok := t.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return 0, ErrInvalid
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalid
	}
	return uint(id), nil
}
