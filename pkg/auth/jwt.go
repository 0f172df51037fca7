package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medisched/clinic-api/internal/model"
)

// TokenVerifier is the narrow contract the core depends on: it turns a
// bearer credential into a verified (account id, role) pair. The core never
// hashes passwords or inspects tokens itself.
type TokenVerifier interface {
	ValidateToken(token string) (*Claims, error)
}

// TokenIssuer mints credentials for authenticated accounts.
type TokenIssuer interface {
	GenerateToken(account *model.Account) (string, time.Time, error)
}

// Claims carried by an access token.
type Claims struct {
	AccountID string     `json:"account_id"`
	Role      model.Role `json:"role"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secret []byte
	expiry time.Duration
}

func NewJWTService(secret string, expiry time.Duration) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		expiry: expiry,
	}
}

func (s *JWTService) GenerateToken(account *model.Account) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.expiry)
	claims := &Claims{
		AccountID: account.ID,
		Role:      account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.AccountID == "" {
		return nil, fmt.Errorf("token missing account id")
	}
	if _, err := model.ParseRole(string(claims.Role)); err != nil {
		return nil, fmt.Errorf("token carries unknown role: %w", err)
	}
	return claims, nil
}
