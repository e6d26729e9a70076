package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	// AccessTokenTTL keeps access tokens short-lived; clients refresh.
	AccessTokenTTL = 15 * time.Minute
	// RefreshTokenTTL matches the refresh cookie lifetime.
	RefreshTokenTTL = 5 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongUse     = errors.New("token used for wrong purpose")
)

// Claims are the JWT claims carried by both token kinds. Use distinguishes
// an access token from a refresh token so one can never stand in for the
// other.
type Claims struct {
	UserID uuid.UUID `json:"uid"`
	Use    string    `json:"use"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies access/refresh token pairs with a shared
// HMAC secret.
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// IssueAccess returns a signed access token for the user.
func (t *TokenIssuer) IssueAccess(userID uuid.UUID) (string, error) {
	return t.issue(userID, "access", AccessTokenTTL)
}

// IssueRefresh returns a signed refresh token. The token ID (jti) is what
// the logout denylist stores.
func (t *TokenIssuer) IssueRefresh(userID uuid.UUID) (string, error) {
	return t.issue(userID, "refresh", RefreshTokenTTL)
}

func (t *TokenIssuer) issue(userID uuid.UUID, use string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Use:    use,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccess parses and validates an access token.
func (t *TokenIssuer) VerifyAccess(raw string) (*Claims, error) {
	return t.verify(raw, "access")
}

// VerifyRefresh parses and validates a refresh token.
func (t *TokenIssuer) VerifyRefresh(raw string) (*Claims, error) {
	return t.verify(raw, "refresh")
}

func (t *TokenIssuer) verify(raw, use string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Use != use {
		return nil, ErrWrongUse
	}
	return claims, nil
}
