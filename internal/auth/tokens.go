// Package auth проверяет bearer токены и подписывает токены привязки Telegram.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// LinkTokenTTL время жизни токена привязки Telegram
const LinkTokenTTL = 15 * time.Minute

// Telegram принимает в /start не больше 64 символов, поэтому подпись укорочена
const linkSignatureLen = 22

type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// SignAccessToken выпускает HS256 токен с ID пользователя в subject.
// Используется в разработке и тестах; в проде токены выдаёт внешний провайдер.
func (t *Tokens) SignAccessToken(userID int64, ttl time.Duration) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken проверяет подпись и срок действия и возвращает ID пользователя
func (t *Tokens) VerifyAccessToken(raw string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	_, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return 0, ErrExpiredToken
		}
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// SignLinkToken подписывает короткий токен для ссылки t.me/<bot>?start=<token>.
// Формат: <user_id>_<expires_unix_base36>_<hmac>.
func (t *Tokens) SignLinkToken(userID int64) (string, error) {
	payload := fmt.Sprintf("%d_%s", userID, strconv.FormatInt(t.now().Add(LinkTokenTTL).Unix(), 36))
	sig, err := t.linkSignature(payload)
	if err != nil {
		return "", err
	}
	return payload + "_" + sig, nil
}

// VerifyLinkToken возвращает ID пользователя из токена привязки
func (t *Tokens) VerifyLinkToken(raw string) (int64, error) {
	parts := strings.SplitN(raw, "_", 3)
	if len(parts) != 3 {
		return 0, ErrInvalidToken
	}

	expected, err := t.linkSignature(parts[0] + "_" + parts[1])
	if err != nil {
		return 0, err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(parts[2])) != 1 {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}
	expires, err := strconv.ParseInt(parts[1], 36, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	if t.now().Unix() > expires {
		return 0, ErrExpiredToken
	}
	return userID, nil
}

func (t *Tokens) linkSignature(payload string) (string, error) {
	sig, err := jwt.SigningMethodHS256.Sign("telegram_link."+payload, t.secret)
	if err != nil {
		return "", fmt.Errorf("sign link token: %w", err)
	}
	return sig[:linkSignatureLen], nil
}
