package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	apperrors "crewsignal/internal/errors"

	"github.com/golang-jwt/jwt/v5"
)

const jwtSecretEnv = "CREWSIGNAL_JWT_SECRET"

// authenticatedUser extracts and verifies the caller's identity from the
// Authorization header. The bearer token is an HS256 JWT whose subject
// claim is the user ID.
func authenticatedUser(r *http.Request) (string, error) {
	secret := os.Getenv(jwtSecretEnv)
	if secret == "" {
		return "", apperrors.New(apperrors.KindInternal, "authentication secret is not configured")
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return "", apperrors.New(apperrors.KindUnauthenticated, "missing authorization header")
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", apperrors.New(apperrors.KindUnauthenticated, "authorization header must use the Bearer scheme")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", apperrors.New(apperrors.KindUnauthenticated, "invalid bearer token")
	}

	if claims.Subject == "" {
		return "", apperrors.New(apperrors.KindUnauthenticated, "token carries no subject")
	}

	return claims.Subject, nil
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID string)

// withAuth wraps a handler so it only runs for authenticated callers.
func (s *Server) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authenticatedUser(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next(w, r, userID)
	}
}
