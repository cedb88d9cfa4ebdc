// Package jwt реализует проверку и выпуск JWT токенов провайдера идентификации.
//
// Провайдер подписывает токены HS256 общим секретом; идентификатор пользователя
// передается в стандартном claim "sub".
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingSubject возвращается, если в токене нет идентификатора пользователя.
var ErrMissingSubject = errors.New("token has no subject")

// Claims описывает данные, которые сервис читает из токена.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID возвращает идентификатор пользователя из claim "sub".
func (c *Claims) UserID() string {
	return c.Subject
}

// Maker выпускает и проверяет токены с общим секретом.
type Maker struct {
	secretKey []byte
	audience  string
	tokenTTL  time.Duration
}

// NewMaker создает Maker. Пустой audience отключает проверку claim "aud".
func NewMaker(secretKey, audience string, ttl time.Duration) *Maker {
	return &Maker{
		secretKey: []byte(secretKey),
		audience:  audience,
		tokenTTL:  ttl,
	}
}

// GenerateToken выпускает токен для пользователя. Используется в тестах и утилите оператора.
func (m *Maker) GenerateToken(userID, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// ParseToken проверяет подпись, срок действия и audience токена.
func (m *Maker) ParseToken(tokenStr string) (*Claims, error) {
	const op = "jwt.ParseToken"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return m.secretKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingSubject)
	}
	return claims, nil
}
