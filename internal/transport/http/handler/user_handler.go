package handler

import (
	"context"
	"net/http"
	"net/url"
	"path"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-registry/internal/domain"
	"user-registry/internal/service"
	httpez "user-registry/internal/transport/http/ez"
)

// UserService handler 依赖的服务能力
type UserService interface {
	CreateUser(ctx context.Context, in service.CreateUserInput) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

type UserHandler struct {
	svc       UserService
	log       *zap.Logger
	readGuard []gin.HandlerFunc
}

type Option func(*UserHandler)

// WithReadGuard 给公开端的读接口（列表/详情）加前置中间件，例如 ADMIN 鉴权
func WithReadGuard(mw ...gin.HandlerFunc) Option {
	return func(h *UserHandler) { h.readGuard = append(h.readGuard, mw...) }
}

func NewUserHandler(svc UserService, l *zap.Logger, opts ...Option) *UserHandler {
	if l == nil {
		l = zap.NewNop()
	}
	h := &UserHandler{svc: svc, log: l}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *UserHandler) Priority() int { return 10 }

// MountAPI /api/v1/users
func (h *UserHandler) MountAPI(api *gin.RouterGroup) {
	ez := httpez.New(api, h.log)

	httpez.RegisterAction(ez, httpez.Action[createUserRequest, UserView]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: httpez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *createUserRequest) (UserView, error) {
			u, err := h.svc.CreateUser(c.Request.Context(), in.toInput())
			if err != nil {
				return UserView{}, err
			}
			setLocation(c, u.ID)
			return toView(u), nil
		},
	})

	read := httpez.New(api.Group("", h.readGuard...), h.log)

	httpez.RegisterAction(read, httpez.Action[struct{}, []UserView]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]UserView, error) {
			users, err := h.svc.ListUsers(c.Request.Context())
			if err != nil {
				return nil, err
			}
			out := make([]UserView, 0, len(users))
			for i := range users {
				out = append(out, toView(&users[i]))
			}
			return out, nil
		},
	})

	httpez.RegisterAction(read, httpez.Action[struct{}, UserView]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (UserView, error) {
			u, err := h.svc.GetUser(c.Request.Context(), c.Param("id"))
			if err != nil {
				return UserView{}, err
			}
			return toView(u), nil
		},
	})
}

// MountAdmin /admin/v1/users；分组已做 ADMIN 鉴权
func (h *UserHandler) MountAdmin(admin *gin.RouterGroup) {
	ez := httpez.New(admin, h.log)

	httpez.RegisterAction(ez, httpez.Action[adminCreateUserRequest, AdminUserView]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: httpez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *adminCreateUserRequest) (AdminUserView, error) {
			u, err := h.svc.CreateUser(c.Request.Context(), in.toInput())
			if err != nil {
				return AdminUserView{}, err
			}
			setLocation(c, u.ID)
			return toAdminView(u), nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, []AdminUserView]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]AdminUserView, error) {
			users, err := h.svc.ListUsers(c.Request.Context())
			if err != nil {
				return nil, err
			}
			out := make([]AdminUserView, 0, len(users))
			for i := range users {
				out = append(out, toAdminView(&users[i]))
			}
			return out, nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, AdminUserView]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (AdminUserView, error) {
			u, err := h.svc.GetUser(c.Request.Context(), c.Param("id"))
			if err != nil {
				return AdminUserView{}, err
			}
			return toAdminView(u), nil
		},
	})
}

// setLocation 绝对 URI：当前请求地址 + /{id}；反代时以 X-Forwarded-Proto 为准
func setLocation(c *gin.Context, id string) {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: path.Join(c.Request.URL.Path, id)}
	c.Header("Location", u.String())
}
