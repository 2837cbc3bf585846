// Package auth issues and verifies player tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the player behind a token.
type Claims struct {
	PlayerID int
	Nickname string
}

// IssueToken signs an HS256 token for the player that expires after ttl.
func IssueToken(secret string, playerID int, nickname string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	custom := jwt.MapClaims{"player_id": playerID, "nickname": nickname, "exp": exp.Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, custom)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseToken verifies the signature and expiry and returns the claims.
func ParseToken(secret, token string) (Claims, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	playerIDf, ok := claims["player_id"].(float64)
	if !ok || playerIDf <= 0 {
		return Claims{}, ErrInvalidToken
	}
	nickname, _ := claims["nickname"].(string)
	return Claims{PlayerID: int(playerIDf), Nickname: nickname}, nil
}
