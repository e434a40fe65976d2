package handler

import (
	"time"

	"user-registry/internal/domain"
	"user-registry/internal/service"
)

// createUserRequest 公开注册入参；不接受 phoneNumber / roles
type createUserRequest struct {
	Username  string `json:"username"  binding:"required,notblank,min=3,max=100"`
	Email     string `json:"email"     binding:"required,notblank,email,max=150"`
	Password  string `json:"password"  binding:"required,notblank,min=8,maxbytes=72"`
	FirstName string `json:"firstName" binding:"omitempty,max=50"`
	LastName  string `json:"lastName"  binding:"omitempty,max=50"`
}

func (r *createUserRequest) toInput() service.CreateUserInput {
	return service.CreateUserInput{
		Username:  r.Username,
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
}

type adminCreateUserRequest struct {
	createUserRequest
	PhoneNumber string   `json:"phoneNumber" binding:"omitempty,max=20"`
	Roles       []string `json:"roles"       binding:"omitempty,dive,oneof=USER ADMIN"`
}

func (r *adminCreateUserRequest) toInput() service.CreateUserInput {
	in := r.createUserRequest.toInput()
	in.PhoneNumber = r.PhoneNumber
	for _, role := range r.Roles {
		in.Roles = append(in.Roles, domain.Role(role))
	}
	return in
}

type UserView struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	PhoneNumber string    `json:"phoneNumber"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AdminUserView 管理端额外返回角色（去重、排序）
type AdminUserView struct {
	UserView
	Roles []domain.Role `json:"roles"`
}

func toView(u *domain.User) UserView {
	return UserView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		Active:      u.Active,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func toAdminView(u *domain.User) AdminUserView {
	return AdminUserView{UserView: toView(u), Roles: u.Roles.Sorted()}
}
