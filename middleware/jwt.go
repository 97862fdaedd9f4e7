package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"p9e.in/rigops/config"
	"p9e.in/rigops/models"
	"p9e.in/rigops/utils"
)

// Claims are the custom payload of access tokens.
type Claims struct {
	UserID uuid.UUID   `json:"userId"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// unexported type prevents collisions in context
type ctxKey int

const userClaimsKey ctxKey = 0

// Auth signs and verifies HS256 tokens.
type Auth struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewAuth(secret string, ttl time.Duration) *Auth {
	return &Auth{key: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken creates a signed token for u.
func (a *Auth) GenerateToken(u *models.User) (string, error) {
	now := a.now()
	claims := Claims{
		UserID: u.ID,
		Name:   u.FullName(),
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
}

// ParseToken verifies signature, algorithm and expiry.
func (a *Auth) ParseToken(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// JWT validates the bearer token and stashes the Claims in ctx.
func (a *Auth) JWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			utils.WriteError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			utils.WriteError(w, http.StatusUnauthorized, "invalid auth header")
			return
		}

		claims, err := a.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		if info, ok := r.Context().Value(requestInfoKey).(*requestInfo); ok {
			info.claims = claims
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// WithClaims attaches claims to ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, userClaimsKey, c)
}

// GetClaims pulls the *Claims out of the request context (or nil)
func GetClaims(r *http.Request) *Claims {
	if c, ok := r.Context().Value(userClaimsKey).(*Claims); ok {
		return c
	}
	return nil
}

func GetUserID(r *http.Request) uuid.UUID {
	if c := GetClaims(r); c != nil {
		return c.UserID
	}
	return uuid.Nil
}

func GetRole(r *http.Request) models.Role {
	if c := GetClaims(r); c != nil {
		return c.Role
	}
	return ""
}

// RequireRole lets through only the listed roles.
func RequireRole(roles []models.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slices.Contains(roles, GetRole(r)) {
			next.ServeHTTP(w, r)
			return
		}
		utils.WriteError(w, http.StatusForbidden, "forbidden")
	})
}

// RequirePermission checks the caller's role grants against perm.
func RequirePermission(perm string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if utils.HasPermission(config.PermissionsFor(GetRole(r)), perm) {
			next.ServeHTTP(w, r)
			return
		}
		utils.WriteError(w, http.StatusForbidden, "forbidden: missing permission "+perm)
	})
}
