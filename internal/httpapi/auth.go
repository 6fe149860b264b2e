// SPDX-License-Identifier: AGPL-3.0-or-later

package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/cartographus/internal/apperrors"
)

// adminClaims is the JWT payload minted for an authenticated relay
// mesh operator, narrower than the teacher's auth.Claims since this
// surface has a single role: admin.
type adminClaims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and validates the bearer tokens that gate
// /admin/* routes, a single-secret HMAC scheme standing in for the
// original's relay-password HTTP Basic Auth (see DESIGN.md's Open
// Question decision), grounded on the teacher's auth.JWTManager.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer builds a TokenIssuer from the configured admin bearer
// secret and token TTL.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("security.admin_bearer_secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}, nil
}

// Issue mints a signed bearer token for subject (e.g. a relay slave's
// configured name).
func (t *TokenIssuer) Issue(subject string) (string, error) {
	now := time.Now()
	claims := &adminClaims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate parses and verifies tokenString, rejecting anything not
// signed with HS256 by this issuer's secret, expired, or malformed.
func (t *TokenIssuer) Validate(tokenString string) (*adminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &adminClaims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidBearerToken, err)
	}
	claims, ok := token.Claims.(*adminClaims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidBearerToken
	}
	return claims, nil
}

// BearerAuth returns Chi-compatible middleware that requires a valid
// bearer token signed by issuer on every request it guards.
func BearerAuth(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				writeError(w, http.StatusUnauthorized, apperrors.ErrMissingBearerToken)
				return
			}
			if _, err := issuer.Validate(tokenString); err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
