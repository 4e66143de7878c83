package services

import (
	"errors"
	"fmt"
	"time"

	"warmwall/internal/apperr"
	"warmwall/internal/authz"
	"warmwall/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims 会话令牌载荷 {id, username, role, exp}
type Claims struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) Actor() authz.Actor {
	return authz.Actor{ID: c.ID, Username: c.Username, Role: c.Role}
}

// TokenService 签发和校验 HS256 会话令牌，没有刷新机制，过期需重新登录
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for the user that expires after the configured TTL.
func (s *TokenService) Issue(user *models.User) (string, time.Time, error) {
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	token, err := s.Sign(Claims{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	return token, expiresAt, err
}

// Sign signs arbitrary claims as given.
func (s *TokenService) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify fails when the signature is wrong, the algorithm is not HS256, or exp has passed.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, &apperr.Error{Kind: apperr.ErrUnauthorized, Message: "Invalid token", Cause: ErrInvalidToken}
	}
	if claims.ID == 0 {
		return nil, &apperr.Error{Kind: apperr.ErrUnauthorized, Message: "Invalid token", Cause: ErrInvalidToken}
	}
	return claims, nil
}
