package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/tallybridge/internal/clock"
	"github.com/smallbiznis/tallybridge/internal/config"
	"go.uber.org/zap"
)

const (
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
	RoleAnalyst    = "analyst"

	issuer        = "tallybridge"
	devJWTSecret  = "tallybridge-dev-secret"
	defaultTTLHrs = 24
)

var (
	ErrMissingToken = errors.New("missing_token")
	ErrInvalidToken = errors.New("invalid_token")
	ErrInvalidRole  = errors.New("invalid_role")
	ErrInvalidUser  = errors.New("invalid_user")
	ErrNoSecret     = errors.New("auth_jwt_secret_required")
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleAccountant, RoleAnalyst:
		return true
	}
	return false
}

// Claims carries the authenticated user on a bearer token.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"uid"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
}

// Subject is the casbin subject for the token holder.
func (c *Claims) Subject() string {
	return "user:" + strconv.FormatInt(c.UserID, 10)
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewTokens(cfg config.Config, clk clock.Clock, log *zap.Logger) (*Tokens, error) {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		if cfg.IsProduction() {
			return nil, ErrNoSecret
		}
		log.Warn("AUTH_JWT_SECRET not set, using development secret")
		secret = devJWTSecret
	}
	ttl := cfg.AuthTokenTTL
	if ttl <= 0 {
		ttl = defaultTTLHrs
	}
	return &Tokens{
		secret: []byte(secret),
		ttl:    time.Duration(ttl) * time.Hour,
		clock:  clk,
	}, nil
}

func (t *Tokens) Issue(userID int64, username, role string) (string, time.Time, error) {
	if userID <= 0 {
		return "", time.Time{}, ErrInvalidUser
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if !ValidRole(role) {
		return "", time.Time{}, ErrInvalidRole
	}

	now := t.clock.Now().UTC()
	expiresAt := now.Add(t.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   userID,
		Username: strings.TrimSpace(username),
		Role:     role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (t *Tokens) Parse(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.clock.Now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID <= 0 || !ValidRole(claims.Role) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}
