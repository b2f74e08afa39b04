package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const audience = "seatrips-gateway"

var ErrInvalidToken = errors.New("invalid session token")

// Claims identify a gateway session. The upstream API token never leaves the
// session store; the browser only holds this.
type Claims struct {
	Sid string `json:"sid"`
	jwt.RegisteredClaims
}

// NewSessionToken opens a new session id and signs a token for it.
func NewSessionToken(secret string, ttl time.Duration) (string, string, error) {
	sid := uuid.NewString()
	token, err := SignSession(sid, secret, ttl)
	if err != nil {
		return "", "", err
	}
	return sid, token, nil
}

func SignSession(sid, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Sid: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func Parse(tokenString, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
	)
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid && claims.Sid != "" {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
