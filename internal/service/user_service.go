package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"user-registry/internal/core/cache"
	"user-registry/internal/domain"
)

type CreateUserInput struct {
	Username    string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
	Roles       []domain.Role
}

// UserService 唯一带业务规则的组件：唯一性预检 → 哈希 → 写入
type UserService struct {
	users  domain.UserRepository
	hasher domain.PasswordHasher
	log    *zap.Logger

	cache    *cache.Cache
	cacheTTL time.Duration
}

type Option func(*UserService)

func WithLogger(l *zap.Logger) Option { return func(s *UserService) { s.log = l } }

// WithCache 按 id 读取走 redis；用户创建后不可变，缓存无需失效
func WithCache(c *cache.Cache, ttl time.Duration) Option {
	return func(s *UserService) { s.cache, s.cacheTTL = c, ttl }
}

func NewUserService(users domain.UserRepository, hasher domain.PasswordHasher, opts ...Option) *UserService {
	s := &UserService{users: users, hasher: hasher, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	s.log.Info("creating user", zap.String("username", in.Username))

	for _, r := range in.Roles {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, r)
		}
	}

	exists, err := s.users.ExistsByUsernameCaseInsensitive(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, s.duplicate("username", in.Username)
	}
	exists, err = s.users.ExistsByEmailCaseInsensitive(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, s.duplicate("email", in.Email)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	saved, err := s.users.Insert(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: digest,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		Active:       true,
		Roles:        domain.NewRoleSet(in.Roles...),
	})
	if err != nil {
		// 预检与写入之间存在竞态，以存储层唯一约束为准
		var ce *domain.ConstraintError
		if errors.As(err, &ce) {
			field := ce.Field
			if field == "" {
				field = s.conflictingField(ctx, in)
			}
			if field == "email" {
				return nil, s.duplicate(field, in.Email)
			}
			return nil, s.duplicate(field, in.Username)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	usersCreated.Inc()
	s.log.Info("user created", zap.String("id", saved.ID))
	out := saved.Sanitized()
	return &out, nil
}

func (s *UserService) duplicate(field, value string) error {
	createConflicts.WithLabelValues(field).Inc()
	s.log.Warn("duplicate user rejected", zap.String("field", field), zap.String("value", value))
	return &domain.DuplicateResourceError{Field: field, Value: value}
}

// conflictingField 驱动没给出约束名时再查一次
func (s *UserService) conflictingField(ctx context.Context, in CreateUserInput) string {
	if ok, err := s.users.ExistsByEmailCaseInsensitive(ctx, in.Email); err == nil && ok {
		return "email"
	}
	return "username"
}

// ListUsers 顺序由存储决定，调用方不应依赖
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Sanitized())
	}
	s.log.Info("listing users", zap.Int("count", len(out)))
	return out, nil
}

type cachedUser struct {
	domain.User
	Roles []domain.Role `json:"roles"`
}

func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	load := func(ctx context.Context) (*cachedUser, error) {
		u, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &cachedUser{User: u.Sanitized(), Roles: u.Roles.Sorted()}, nil
	}

	var (
		cu  *cachedUser
		err error
	)
	if s.cache != nil {
		cu, err = cache.GetOrLoadJSON(s.cache, ctx, s.cache.Key("user", id), s.cacheTTL, load)
	} else {
		cu, err = load(ctx)
	}
	if err != nil {
		return nil, err
	}
	u := cu.User
	u.Roles = domain.NewRoleSet(cu.Roles...)
	return &u, nil
}

// Authenticate 校验 用户名/邮箱 + 密码，管理端签发 token 前使用
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	var (
		u   *domain.User
		err error
	)
	if strings.Contains(login, "@") {
		u, err = s.users.FindByEmailCaseInsensitive(ctx, login)
	} else {
		u, err = s.users.FindByUsernameCaseInsensitive(ctx, login)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !u.Active {
		return nil, domain.ErrInactiveUser
	}
	out := u.Sanitized()
	return &out, nil
}
