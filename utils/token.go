package authUtils

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var ErrInvalidToken = errors.New("invalid authorization token")

// Identity is the verified caller of a request.
type Identity struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Phone         string `json:"phone"`
	Name          string `json:"name"`
}

// Verifier turns a bearer credential into an Identity.
type Verifier interface {
	Verify(token string) (*Identity, error)
}

// TokenManager issues and verifies HS256 tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken generates a JWT token for the given identity
func (m *TokenManager) GenerateToken(id Identity) (string, error) {
	if len(m.secret) == 0 {
		return "", fmt.Errorf("JWT secret is not configured")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":        id.UID,
		"email":          id.Email,
		"email_verified": id.EmailVerified,
		"phone":          id.Phone,
		"name":           id.Name,
		"exp":            m.now().Add(m.ttl).Unix(),
	})

	return token.SignedString(m.secret)
}

func (m *TokenManager) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	uid, _ := claims["user_id"].(string)
	if uid == "" {
		return nil, fmt.Errorf("%w: missing user_id claim", ErrInvalidToken)
	}

	id := &Identity{UID: uid}
	id.Email, _ = claims["email"].(string)
	id.EmailVerified, _ = claims["email_verified"].(bool)
	id.Phone, _ = claims["phone"].(string)
	id.Name, _ = claims["name"].(string)
	return id, nil
}
