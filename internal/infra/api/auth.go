package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"manuscript-pipeline/internal/config"
)

const RoleCollaborator = "collaborator"

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

// Claims carried by collaborator tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthManager checks the two credentials the API accepts: HS256
// collaborator JWTs and the shared dispatch secret.
type AuthManager struct {
	jwtSecret      []byte
	dispatchSecret string
	devSecret      string
	dev            bool
}

func NewAuthManager(cfg config.AuthConfig, dev bool) *AuthManager {
	return &AuthManager{
		jwtSecret:      []byte(cfg.JWTSecret),
		dispatchSecret: cfg.DispatchSecret,
		devSecret:      cfg.DevSecret,
		dev:            dev,
	}
}

// Mint signs a collaborator token for subject.
func (a *AuthManager) Mint(subject string, ttl time.Duration) (string, error) {
	if len(a.jwtSecret) == 0 {
		return "", errors.New("auth.jwt_secret is not configured")
	}
	now := time.Now()
	claims := Claims{
		Role: RoleCollaborator,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   subject,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*Claims, error) {
	tok, ok := bearer(r)
	if !ok {
		return nil, errMissingToken
	}
	return a.parse(tok)
}

func (a *AuthManager) parse(tok string) (*Claims, error) {
	if len(a.jwtSecret) == 0 {
		return nil, errInvalidToken
	}
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

// RequireCollaborator rejects requests without a valid collaborator token.
func (a *AuthManager) RequireCollaborator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.ParseFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if claims.Role != RoleCollaborator {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireDispatchSecret accepts `Bearer <dispatch secret>`, or the dev
// secret when running in dev mode. An unset secret never matches.
func (a *AuthManager) RequireDispatchSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, _ := bearer(r)
		if !a.validDispatch(tok) {
			writeError(w, http.StatusUnauthorized, "Unauthorized. Set auth.dispatch_secret (or auth.dev_secret in dev) and pass it as Bearer token.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *AuthManager) validDispatch(tok string) bool {
	if tok == "" {
		return false
	}
	if secretEqual(tok, a.dispatchSecret) {
		return true
	}
	return a.dev && secretEqual(tok, a.devSecret)
}

func secretEqual(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func bearer(r *http.Request) (string, bool) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(hdr[7:])
	return tok, tok != ""
}
