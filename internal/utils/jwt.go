package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/huangang/taskmanager/internal/config"
)

// Verification failures. Expiry is reported separately so callers can
// tell "refresh and retry" apart from "log in again".
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// NewTokenID returns a random (v4) UUID for a refresh-token record.
func NewTokenID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	return id.String(), nil
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	UserID string `json:"uid"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. TokenID binds the token
// to its persisted record so it can be revoked server-side.
type RefreshClaims struct {
	UserID  string `json:"uid"`
	TokenID string `json:"tid"`
	Type    string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies access and refresh tokens with independent
// secrets and lifetimes.
type TokenCodec struct {
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration
	now           func() time.Time
}

type CodecOption func(*TokenCodec)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

func NewTokenCodec(cfg config.JWTConfig, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{
		accessSecret:  []byte(cfg.AccessSecret),
		accessTTL:     cfg.AccessExpiresIn.Std(),
		refreshSecret: []byte(cfg.RefreshSecret),
		refreshTTL:    cfg.RefreshExpiresIn.Std(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TokenCodec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *TokenCodec) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := c.now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// IssueAccessToken returns a signed access token for userID.
func (c *TokenCodec) IssueAccessToken(userID string) (string, error) {
	claims := AccessClaims{
		UserID:           userID,
		Type:             TokenTypeAccess,
		RegisteredClaims: c.registered(c.accessTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
}

// IssueRefreshToken returns a signed refresh token bound to the record tokenID.
func (c *TokenCodec) IssueRefreshToken(userID, tokenID string) (string, error) {
	claims := RefreshClaims{
		UserID:           userID,
		TokenID:          tokenID,
		Type:             TokenTypeRefresh,
		RegisteredClaims: c.registered(c.refreshTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
}

// VerifyAccessToken checks signature, expiry and kind of an access token.
func (c *TokenCodec) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(tokenString, claims, c.accessSecret); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// VerifyRefreshToken checks signature, expiry and kind of a refresh token.
func (c *TokenCodec) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(tokenString, claims, c.refreshSecret); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh || claims.UserID == "" || claims.TokenID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// DecodeUnsafe reads a refresh token payload without checking the signature.
// Only use it on tokens this process just issued.
func (c *TokenCodec) DecodeUnsafe(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims, nil
}

func (c *TokenCodec) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
