package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dirbridge/internal/domain"
)

// Claims is the JWT payload issued on login.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users  *UserService
	secret []byte
	expire time.Duration
}

func NewAuthService(users *UserService, secret string, expire time.Duration) *AuthService {
	return &AuthService{users: users, secret: []byte(secret), expire: expire}
}

// Login authenticates the credentials and returns a signed HS256 token
// together with the authenticated user.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	u, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expire)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// ValidateToken parses and verifies a token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrCredentials("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.ErrCredentials("invalid token")
	}
	return claims, nil
}
