package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kimhsiao/feedbacksync/internal/errors"
)

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account allowed to log in. PasswordHash is a bcrypt hash.
type User struct {
	Username     string `mapstructure:"username" yaml:"username"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash"`
	Role         string `mapstructure:"role" yaml:"role"`
}

// AuthConfig enables token authentication. Auth is off when Secret is empty
// or no users are configured.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	Users    []User        `mapstructure:"users"`
}

// Claims are carried in issued tokens.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type authCtxKey int

const claimsKey authCtxKey = 1

// Authenticator issues and checks HS256 tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	users  map[string]User
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator. It returns nil when cfg leaves
// auth disabled; a nil Authenticator allows every request.
func NewAuthenticator(cfg AuthConfig) (*Authenticator, error) {
	if cfg.Secret == "" || len(cfg.Users) == 0 {
		return nil, nil
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}

	users := make(map[string]User, len(cfg.Users))
	for _, u := range cfg.Users {
		if u.Username == "" || u.PasswordHash == "" {
			return nil, errors.New(errors.ErrConfig, "auth users need a username and password_hash")
		}
		if u.Role != RoleAdmin && u.Role != RoleUser {
			return nil, errors.Newf(errors.ErrConfig, "user %s has unknown role %q", u.Username, u.Role)
		}
		users[u.Username] = u
	}
	return &Authenticator{secret: []byte(cfg.Secret), ttl: cfg.TokenTTL, users: users, now: time.Now}, nil
}

// HashPassword returns the bcrypt hash of password for use in AuthConfig.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New(errors.ErrInvalid, "password must not be empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(errors.ErrInternal, "failed to hash password", err)
	}
	return string(b), nil
}

// Login checks credentials and returns a signed token and the user's role.
func (a *Authenticator) Login(username, password string) (string, string, error) {
	u, ok := a.users[username]
	if !ok || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", "", errors.New(errors.ErrUnauthorized, "invalid credentials")
	}
	tok, err := a.SignToken(u.Username, u.Role)
	if err != nil {
		return "", "", err
	}
	return tok, u.Role, nil
}

// SignToken issues a token for username with role.
func (a *Authenticator) SignToken(username, role string) (string, error) {
	now := a.now()
	claims := Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(errors.ErrInternal, "failed to sign token", err)
	}
	return s, nil
}

// ParseToken validates tok and returns its claims.
func (a *Authenticator) ParseToken(tok string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "invalid token", err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New(errors.ErrUnauthorized, "invalid token")
	}
	return c, nil
}

// WithAuth attaches claims to the request context when a valid bearer token
// is present.
func (a *Authenticator) WithAuth(next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if strings.HasPrefix(h, "Bearer ") {
			tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			if c, err := a.ParseToken(tok); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), claimsKey, c))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Require rejects requests without a token carrying one of roles. With auth
// disabled it passes everything through.
func (a *Authenticator) Require(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	if a == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		for _, role := range roles {
			if c.Role == role {
				next(w, r)
				return
			}
		}
		writeError(w, http.StatusForbidden, "insufficient role")
	}
}

// ClaimsFromContext returns the claims attached by WithAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}
