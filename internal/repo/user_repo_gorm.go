package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"user-registry/internal/domain"
	"user-registry/internal/feature/user"
	"user-registry/pkg/utils"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) ExistsByUsernameCaseInsensitive(ctx context.Context, username string) (bool, error) {
	return r.existsLower(ctx, "username", username)
}

func (r *UserRepo) ExistsByEmailCaseInsensitive(ctx context.Context, email string) (bool, error) {
	return r.existsLower(ctx, "email", email)
}

func (r *UserRepo) existsLower(ctx context.Context, col, val string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&user.UserModel{}).
		Where("LOWER("+col+") = LOWER(?)", val).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("exists by %s: %w", col, err)
	}
	return n > 0, nil
}

func (r *UserRepo) FindByUsernameCaseInsensitive(ctx context.Context, username string) (*domain.User, error) {
	return r.first(ctx, "LOWER(username) = LOWER(?)", username)
}

func (r *UserRepo) FindByEmailCaseInsensitive(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepo) first(ctx context.Context, cond string, arg any) (*domain.User, error) {
	var m user.UserModel
	err := r.db.WithContext(ctx).Preload("Roles").Where(cond, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return m.ToDomain(), nil
}

// Insert 用户行和角色行在同一事务内写入
func (r *UserRepo) Insert(ctx context.Context, u *domain.User) (*domain.User, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	rec := *u
	rec.ID = utils.NewID()
	rec.Active = true
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m := user.FromDomain(&rec)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(m).Error
	})
	if err != nil {
		if isDupKey(err) {
			return nil, &domain.ConstraintError{Field: duplicateField(err), Err: err}
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return m.ToDomain(), nil
}

func (r *UserRepo) FindAll(ctx context.Context) ([]domain.User, error) {
	var ms []user.UserModel
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Order("created_at ASC").
		Order("id ASC").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]domain.User, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].ToDomain())
	}
	return out, nil
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	// sqlite 等其它驱动只能看错误文本
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

// duplicateField 从约束名 / 索引名里判断冲突列，判断不了返回 ""
func duplicateField(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fieldOf(pgErr.ConstraintName)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// Duplicate entry 'x' for key 'app_users.uk_users_email'；值本身不能参与判断
		if i := strings.LastIndex(myErr.Message, "for key"); i >= 0 {
			return fieldOf(myErr.Message[i:])
		}
		return ""
	}
	msg := strings.ToLower(err.Error())
	if i := strings.Index(msg, "unique constraint failed"); i >= 0 {
		return fieldOf(msg[i:])
	}
	return ""
}

func fieldOf(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.Contains(name, "username"):
		return "username"
	case strings.Contains(name, "email"):
		return "email"
	}
	return ""
}
