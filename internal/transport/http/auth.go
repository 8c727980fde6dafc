package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenCookie carries the guest token for browsers.
const TokenCookie = "quiz_token"

const issuer = "dsa-quiz-service"

// Auth issues and verifies HS256 guest tokens.
type Auth struct {
	hmac []byte
	ttl  time.Duration
	now  func() time.Time
}

func NewAuth(secret string, ttl time.Duration) *Auth {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Auth{hmac: []byte(secret), ttl: ttl, now: time.Now}
}

type Claims struct {
	jwt.RegisteredClaims
}

// NewGuestID returns a fresh guest identity.
func NewGuestID() string {
	return "guest-" + uuid.NewString()
}

func (a *Auth) Issue(sub string) (string, error) {
	now := a.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *Auth) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || c.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// Middleware rejects requests without a valid token and puts the subject on the context.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := tokenFromRequest(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}
		claims, err := a.Parse(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "bad token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.Subject)))
	})
}

// tokenFromRequest looks at the Authorization header, then the cookie, then ?token= (websockets).
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

type ctxKey struct{}

func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func UserFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}
