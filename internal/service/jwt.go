package service

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

// SessionTTL bounds how long a connect token is accepted
const SessionTTL = 12 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt secret not initialised")
)

func InitJWT(secret string) {
	if secret == "" {
		panic("JWT_SECRET is not set")
	}
	jwtSecret = []byte(secret)
}

// GenerateJWT issues a session token for the connected account
func GenerateJWT(account common.Address) (string, error) {
	if len(jwtSecret) == 0 {
		return "", ErrNoSecret
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"account": account.Hex(),
		"exp":     now.Add(SessionTTL).Unix(),
		"iat":     now.Unix(),
		"nbf":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseJWT validates a session token and returns its account
func ParseJWT(tokenString string) (common.Address, error) {
	if len(jwtSecret) == 0 {
		return common.Address{}, ErrNoSecret
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return common.Address{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return common.Address{}, errors.New("invalid claims")
	}

	account, ok := claims["account"].(string)
	if !ok || !common.IsHexAddress(account) {
		return common.Address{}, errors.New("account not found")
	}

	return common.HexToAddress(account), nil
}
