package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/pkg/clock"
	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
)

// AuthService verifies access tokens minted by the external auth service and
// resolves them into actors.
type AuthService struct {
	secret []byte
	clock  clock.Clock
}

// NewAuthService instantiates AuthService for an HS256 secret.
func NewAuthService(secret string, clk clock.Clock) *AuthService {
	if clk == nil {
		clk = clock.Real()
	}
	return &AuthService{secret: []byte(secret), clock: clk}
}

// ValidateToken parses and verifies a token and returns its actor.
func (s *AuthService) ValidateToken(tokenString string) (models.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return models.Actor{}, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return models.Actor{}, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	actor, ok := claims.Actor()
	if !ok {
		return models.Actor{}, appErrors.Clone(appErrors.ErrUnauthorized, "token carries no usable actor")
	}
	return actor, nil
}

// IssueToken signs a token for actor. It backs local tooling and tests; the
// production issuer is the external auth service.
func (s *AuthService) IssueToken(actor models.Actor, ttl time.Duration) (string, error) {
	if actor.ID == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "actor id is required")
	}
	issuedAt := s.clock.Now()
	claims := &models.JWTClaims{
		UserID: actor.ID,
		Role:   string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return signed, nil
}
