package services

import (
	"time"

	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims is the bearer token issued by the external identity provider.
// Only the subject is consumed here.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// IdentityService verifies HS256 bearer tokens and yields the acting user id.
type IdentityService struct {
	jwtSecret []byte
	clock     func() time.Time
}

func NewIdentityService(secret string) *IdentityService {
	return &IdentityService{jwtSecret: []byte(secret), clock: time.Now}
}

func (s *IdentityService) ParseAccessToken(tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, sentinal_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, sentinal_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.clock))
	if err != nil {
		return uuid.Nil, sentinal_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return uuid.Nil, sentinal_errors.ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, sentinal_errors.ErrUnauthorized
	}
	return userID, nil
}

// IssueToken signs a token for userID. Production tokens come from the
// identity provider; this exists for local tooling and tests.
func (s *IdentityService) IssueToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := s.clock()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
