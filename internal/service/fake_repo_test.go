package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"user-registry/internal/domain"
	"user-registry/pkg/utils"
)

// fakeUsers 内存版仓储，唯一性与真实库一致（大小写不敏感）
type fakeUsers struct {
	mu    sync.Mutex
	users []domain.User

	existsErr error
	insertErr error
	findCalls int
}

func (f *fakeUsers) ExistsByUsernameCaseInsensitive(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.indexOf(func(u domain.User) bool { return strings.EqualFold(u.Username, username) }) >= 0, nil
}

func (f *fakeUsers) ExistsByEmailCaseInsensitive(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.indexOf(func(u domain.User) bool { return strings.EqualFold(u.Email, email) }) >= 0, nil
}

func (f *fakeUsers) FindByUsernameCaseInsensitive(_ context.Context, username string) (*domain.User, error) {
	return f.find(func(u domain.User) bool { return strings.EqualFold(u.Username, username) })
}

func (f *fakeUsers) FindByEmailCaseInsensitive(_ context.Context, email string) (*domain.User, error) {
	return f.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	return f.find(func(u domain.User) bool { return u.ID == id })
}

func (f *fakeUsers) Insert(_ context.Context, u *domain.User) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	if f.indexOf(func(x domain.User) bool { return strings.EqualFold(x.Username, u.Username) }) >= 0 {
		return nil, &domain.ConstraintError{Field: "username"}
	}
	if f.indexOf(func(x domain.User) bool { return strings.EqualFold(x.Email, u.Email) }) >= 0 {
		return nil, &domain.ConstraintError{Field: "email"}
	}
	rec := *u
	rec.ID = utils.NewID()
	rec.Active = true
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	if rec.Roles == nil {
		rec.Roles = domain.NewRoleSet()
	}
	f.users = append(f.users, rec)
	return &rec, nil
}

func (f *fakeUsers) FindAll(context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.User(nil), f.users...), nil
}

func (f *fakeUsers) find(match func(domain.User) bool) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	i := f.indexOf(match)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	u := f.users[i]
	return &u, nil
}

func (f *fakeUsers) indexOf(match func(domain.User) bool) int {
	for i, u := range f.users {
		if match(u) {
			return i
		}
	}
	return -1
}

// racyUsers 预检永远放行，模拟并发窗口
type racyUsers struct{ *fakeUsers }

func (racyUsers) ExistsByUsernameCaseInsensitive(context.Context, string) (bool, error) {
	return false, nil
}

func (racyUsers) ExistsByEmailCaseInsensitive(context.Context, string) (bool, error) {
	return false, nil
}

type failingHasher struct{}

func (failingHasher) Hash(string) (string, error) { return "", domain.ErrHashing }
func (failingHasher) Verify(string, string) bool  { return false }
