package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"user-registry/internal/core/cache"
	"user-registry/internal/domain"
	"user-registry/pkg/utils"
)

func newTestService(repo domain.UserRepository) *UserService {
	return NewUserService(repo, utils.NewBcryptHasher(bcrypt.MinCost))
}

func validInput(username, email string) CreateUserInput {
	return CreateUserInput{
		Username:  username,
		Email:     email,
		Password:  "newPassword123",
		FirstName: "New",
		LastName:  "User",
	}
}

func TestCreateUser_Success(t *testing.T) {
	repo := &fakeUsers{}
	s := newTestService(repo)

	u, err := s.CreateUser(context.Background(), validInput("newuser", "newuser@example.com"))
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.True(t, u.Active)
	assert.Empty(t, u.PasswordHash)
	assert.Equal(t, "newuser", u.Username)
	assert.Equal(t, "New", u.FirstName)
	assert.Empty(t, u.Roles)

	stored := repo.users[0]
	assert.NotEqual(t, "newPassword123", stored.PasswordHash)
	h := utils.NewBcryptHasher(bcrypt.MinCost)
	assert.True(t, h.Verify("newPassword123", stored.PasswordHash))
	assert.False(t, h.Verify("newPassword124", stored.PasswordHash))
}

func TestCreateUser_DuplicateUsernameAnyCase(t *testing.T) {
	s := newTestService(&fakeUsers{})
	ctx := context.Background()
	_, err := s.CreateUser(ctx, validInput("testuser1", "test1@example.com"))
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, validInput("TESTUSER1", "different@example.com"))
	require.ErrorIs(t, err, domain.ErrDuplicateResource)
	var de *domain.DuplicateResourceError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "username", de.Field)
}

func TestCreateUser_DuplicateEmailAnyCase(t *testing.T) {
	s := newTestService(&fakeUsers{})
	ctx := context.Background()
	_, err := s.CreateUser(ctx, validInput("testuser1", "test1@example.com"))
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, validInput("brandnew", "TEST1@Example.COM"))
	var de *domain.DuplicateResourceError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "email", de.Field)
}

func TestCreateUser_StorageConflictBecomesDuplicate(t *testing.T) {
	inner := &fakeUsers{}
	s := newTestService(racyUsers{inner})
	ctx := context.Background()

	_, err := s.CreateUser(ctx, validInput("racer", "racer@example.com"))
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, validInput("RACER", "other@example.com"))
	var de *domain.DuplicateResourceError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "username", de.Field)

	_, err = s.CreateUser(ctx, validInput("other", "Racer@example.com"))
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "email", de.Field)
	assert.Len(t, inner.users, 1)
}

func TestCreateUser_UnnamedConstraintFallsBackToLookup(t *testing.T) {
	repo := &fakeUsers{insertErr: &domain.ConstraintError{Err: errors.New("duplicate key")}}
	s := newTestService(repo)

	_, err := s.CreateUser(context.Background(), validInput("a-user", "a@example.com"))
	var de *domain.DuplicateResourceError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "username", de.Field)
}

func TestCreateUser_ConcurrentSameUsername(t *testing.T) {
	s := newTestService(racyUsers{&fakeUsers{}})
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CreateUser(ctx, validInput("same", fmt.Sprintf("same%d@example.com", i)))
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		if err == nil {
			ok++
		} else if errors.Is(err, domain.ErrDuplicateResource) {
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
}

func TestCreateUser_Roles(t *testing.T) {
	s := newTestService(&fakeUsers{})
	ctx := context.Background()

	in := validInput("boss", "boss@example.com")
	in.Roles = []domain.Role{domain.RoleAdmin, domain.RoleUser, domain.RoleAdmin}
	u, err := s.CreateUser(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleAdmin, domain.RoleUser}, u.Roles.Sorted())

	in = validInput("bad", "bad@example.com")
	in.Roles = []domain.Role{"ROOT"}
	_, err = s.CreateUser(ctx, in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateUser_Failures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("db down")

	_, err := newTestService(&fakeUsers{existsErr: boom}).CreateUser(ctx, validInput("x-user", "x@example.com"))
	assert.ErrorIs(t, err, boom)

	_, err = newTestService(&fakeUsers{insertErr: boom}).CreateUser(ctx, validInput("x-user", "x@example.com"))
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, domain.ErrDuplicateResource))

	_, err = NewUserService(&fakeUsers{}, failingHasher{}).CreateUser(ctx, validInput("x-user", "x@example.com"))
	assert.ErrorIs(t, err, domain.ErrHashing)
}

func TestListUsers(t *testing.T) {
	s := newTestService(&fakeUsers{})
	ctx := context.Background()

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	for i := 0; i < 3; i++ {
		_, err := s.CreateUser(ctx, validInput(fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@example.com", i)))
		require.NoError(t, err)
	}
	users, err = s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	for _, u := range users {
		assert.Empty(t, u.PasswordHash)
		assert.True(t, u.Active)
		assert.NotEmpty(t, u.ID)
	}
}

func TestGetUser(t *testing.T) {
	repo := &fakeUsers{}
	s := newTestService(repo)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, validInput("lookup", "lookup@example.com"))
	require.NoError(t, err)

	got, err := s.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "lookup", got.Username)
	assert.Empty(t, got.PasswordHash)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetUser_Cached(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	defer c.Close()

	repo := &fakeUsers{}
	s := NewUserService(repo, utils.NewBcryptHasher(bcrypt.MinCost), WithCache(c, time.Minute))
	ctx := context.Background()

	in := validInput("cached", "cached@example.com")
	in.Roles = []domain.Role{domain.RoleAdmin}
	created, err := s.CreateUser(ctx, in)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := s.GetUser(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.True(t, got.Roles.Has(domain.RoleAdmin))
		assert.Empty(t, got.PasswordHash)
	}
	assert.Equal(t, 1, repo.findCalls)

	raw, err := mr.Get(c.Key("user", created.ID))
	require.NoError(t, err)
	assert.NotContains(t, raw, "$2a$")

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, mr.Exists(c.Key("user", "missing")))
}

func TestAuthenticate(t *testing.T) {
	repo := &fakeUsers{}
	s := newTestService(repo)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, validInput("admin", "admin@example.com"))
	require.NoError(t, err)

	u, err := s.Authenticate(ctx, "ADMIN", "newPassword123")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Username)
	assert.Empty(t, u.PasswordHash)

	_, err = s.Authenticate(ctx, "Admin@Example.com", "newPassword123")
	require.NoError(t, err)

	_, err = s.Authenticate(ctx, "admin", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "nobody", "newPassword123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, " ", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	repo.users[0].Active = false
	_, err = s.Authenticate(ctx, "admin", "newPassword123")
	assert.ErrorIs(t, err, domain.ErrInactiveUser)
}
