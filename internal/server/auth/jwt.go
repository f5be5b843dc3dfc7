package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/reforest/internal/common"
	"github.com/dmitrijs2005/reforest/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "reforest"

// Claims is a capability token: the subject plus the profile attributes the
// verifier policy looks at, as of issue time.
type Claims struct {
	jwt.RegisteredClaims
	UserID string      `json:"uid"`
	Role   models.Role `json:"role"`
	Level  int         `json:"lvl"`
	Staff  bool        `json:"staff,omitempty"`
}

// Profile rebuilds the profile attributes carried in the token.
func (c *Claims) Profile() *models.Profile {
	return &models.Profile{UserID: c.UserID, Role: c.Role, Level: c.Level, Staff: c.Staff}
}

func GenerateToken(p *models.Profile, secretKey []byte, validity time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UserID: p.UserID,
		Role:   p.Role,
		Level:  p.Level,
		Staff:  p.Staff,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// ParseToken verifies signature, issuer and expiry.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
