package domain

import (
	"context"
	"sort"
	"time"
)

// Role 平铺的角色标签（非层级）
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// RoleSet 无序集合
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Sorted 仅用于稳定输出
func (s RoleSet) Sorted() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	PhoneNumber  string    `json:"phoneNumber"`
	Active       bool      `json:"active"`
	Roles        RoleSet   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Sanitized 去掉密码摘要后的副本
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

type UserRepository interface {
	ExistsByUsernameCaseInsensitive(ctx context.Context, username string) (bool, error)
	ExistsByEmailCaseInsensitive(ctx context.Context, email string) (bool, error)
	FindByUsernameCaseInsensitive(ctx context.Context, username string) (*User, error)
	FindByEmailCaseInsensitive(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	// Insert 分配 id/createdAt/updatedAt/active；唯一冲突返回 ErrConstraintViolation
	Insert(ctx context.Context, u *User) (*User, error)
	FindAll(ctx context.Context) ([]User, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}
