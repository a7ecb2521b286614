package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"raffle/internal/models"
	"raffle/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/logger"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials hides whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidToken is returned for malformed, forged or expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrMissingSecret is returned when no JWT secret is configured.
	ErrMissingSecret = errors.New("JWT secret is not configured")
)

// Claims identifies the admin a session token was issued to.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator checks admin credentials and issues signed session tokens.
type Authenticator struct {
	store  store.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator signing HS256 tokens with secret.
func NewAuthenticator(st store.Store, secret string, ttl time.Duration) (*Authenticator, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Authenticator{
		store:  st,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CreateAdmin stores a new admin account with a bcrypt password hash.
func CreateAdmin(ctx context.Context, st store.Store, username, password string) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := &models.Admin{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := st.InsertAdmin(ctx, admin); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("admin %q already exists: %w", username, err)
		}
		return nil, err
	}
	logger.Infof("created admin %s", username)
	return admin, nil
}

// CreateAdmin stores a new admin account.
func (a *Authenticator) CreateAdmin(ctx context.Context, username, password string) (*models.Admin, error) {
	return CreateAdmin(ctx, a.store, username, password)
}

// EnsureAdmin creates the admin account if no admin with that username exists yet.
// An empty password is a no-op.
func (a *Authenticator) EnsureAdmin(ctx context.Context, username, password string) error {
	if password == "" {
		return nil
	}
	if _, err := a.store.FindAdmin(ctx, strings.TrimSpace(username)); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	_, err := a.CreateAdmin(ctx, username, password)
	return err
}

// Login verifies the credentials and returns a signed session token with its expiry.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	admin, err := a.store.FindAdmin(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warningf("login failed for unknown admin %q", username)
			return "", time.Time{}, ErrInvalidCredentials
		}
		return "", time.Time{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		logger.Warningf("login failed for admin %q", username)
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := a.now()
	expiresAt := now.Add(a.ttl)
	claims := Claims{
		Username: admin.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify parses a session token and returns its claims.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
