package user

import (
	"time"

	"user-registry/internal/domain"
)

type UserModel struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Username     string `gorm:"uniqueIndex:uk_users_username;size:100;not null"`
	Email        string `gorm:"uniqueIndex:uk_users_email;size:150;not null"`
	PasswordHash string `gorm:"column:password;size:100;not null"`
	FirstName    string `gorm:"size:50"`
	LastName     string `gorm:"size:50"`
	PhoneNumber  string `gorm:"size:20"`
	Active       bool   `gorm:"column:is_active;not null;default:true"`

	Roles []UserRoleModel `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "app_users" }

type UserRoleModel struct {
	UserID string `gorm:"primaryKey;type:varchar(36)"`
	Role   string `gorm:"primaryKey;size:16"`
}

func (UserRoleModel) TableName() string { return "user_roles" }

func FromDomain(u *domain.User) *UserModel {
	m := &UserModel{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PhoneNumber:  u.PhoneNumber,
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	for _, r := range u.Roles.Sorted() {
		m.Roles = append(m.Roles, UserRoleModel{UserID: u.ID, Role: string(r)})
	}
	return m
}

func (m *UserModel) ToDomain() *domain.User {
	roles := make(domain.RoleSet, len(m.Roles))
	for _, r := range m.Roles {
		roles[domain.Role(r.Role)] = struct{}{}
	}
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		PhoneNumber:  m.PhoneNumber,
		Active:       m.Active,
		Roles:        roles,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
