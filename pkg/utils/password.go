package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"user-registry/internal/domain"
)

// BcryptHasher 单向自适应哈希（自带随机盐）
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), h.Cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrHashing, err)
	}
	return string(b), nil
}

// Verify 不匹配 / digest 非法 都只返回 false
func (h *BcryptHasher) Verify(pw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}
