package handler

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/cfo-assistant-go/internal/config"
	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

type contextKey string

const userIDKey contextKey = "userID"

// APIKeyHeader carries a scheduler's API key.
const APIKeyHeader = "X-API-Key"

// Authenticator resolves the calling user from a bearer token or an API key.
type Authenticator struct {
	secret []byte
	keys   []apiKey
	logger *zap.Logger
}

type apiKey struct {
	userID string
	hash   []byte
}

func NewAuthenticator(cfg config.Auth, logger *zap.Logger) *Authenticator {
	a := &Authenticator{secret: []byte(cfg.JWTSecret), logger: logger}
	for user, hash := range cfg.APIKeyHashes {
		a.keys = append(a.keys, apiKey{userID: user, hash: []byte(hash)})
	}
	sort.Slice(a.keys, func(i, j int) bool { return a.keys[i].userID < a.keys[j].userID })
	return a
}

// ValidateToken checks an HS256 token and returns its subject.
func (a *Authenticator) ValidateToken(tokenString string) (string, error) {
	if len(a.secret) == 0 {
		return "", &domain.ErrUnauthorized{Message: "bearer tokens are not accepted"}
	}
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return claims.Subject, nil
}

// ValidateAPIKey returns the user whose bcrypt hash matches key.
func (a *Authenticator) ValidateAPIKey(key string) (string, error) {
	for _, k := range a.keys {
		if bcrypt.CompareHashAndPassword(k.hash, []byte(key)) == nil {
			return k.userID, nil
		}
	}
	return "", &domain.ErrUnauthorized{Message: "invalid API key"}
}

// Middleware authenticates every request and injects the user id into the
// context. A bearer token takes precedence over an API key.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.authenticate(r)
		if err != nil {
			a.logger.Warn("auth: rejected request",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) authenticate(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", &domain.ErrUnauthorized{Message: "invalid token format"}
		}
		return a.ValidateToken(parts[1])
	}
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return a.ValidateAPIKey(key)
	}
	return "", &domain.ErrUnauthorized{Message: "missing credentials"}
}

// UserIDFromContext extracts the authenticated user id from context.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}
