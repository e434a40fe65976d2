package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"user-registry/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"` // "USER" / "ADMIN"
	jwt.RegisteredClaims
}

type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// IssueFor 有 ADMIN 角色则签 ADMIN，否则 USER
func (j *JWTer) IssueFor(u *domain.User) (string, error) {
	role := domain.RoleUser
	if u.Roles.Has(domain.RoleAdmin) {
		role = domain.RoleAdmin
	}
	return j.issue(u.ID, u.Username, string(role))
}

func (j *JWTer) issue(uid, username, role string) (string, error) {
	if len(j.Secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := Claims{
		UID:      uid,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
}

func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	// 空密钥下任何人都能伪造签名
	if len(j.Secret) == 0 {
		return nil, fmt.Errorf("%w: jwt secret is not configured", ErrInvalidToken)
	}
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithLeeway(60*time.Second))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, ErrInvalidToken
}
