package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"user-registry/internal/domain"
	"user-registry/internal/service"
)

var errNotAdmin = errors.New("user does not have the ADMIN role")

type userCreator interface {
	CreateUser(ctx context.Context, in service.CreateUserInput) (*domain.User, error)
}

type authenticator interface {
	Authenticate(ctx context.Context, login, password string) (*domain.User, error)
}

type tokenIssuer interface {
	IssueFor(u *domain.User) (string, error)
}

// runCreate admin create：与 HTTP 走同一个 service，唯一性规则一致
func runCreate(ctx context.Context, users userCreator, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		in    service.CreateUserInput
		roles string
	)
	fs.StringVar(&in.Username, "username", "", "username (3-100 chars)")
	fs.StringVar(&in.Email, "email", "", "email address")
	fs.StringVar(&in.Password, "password", "", "password (min 8 chars)")
	fs.StringVar(&in.FirstName, "first", "", "first name")
	fs.StringVar(&in.LastName, "last", "", "last name")
	fs.StringVar(&in.PhoneNumber, "phone", "", "phone number")
	fs.StringVar(&roles, "roles", "", "comma separated roles, e.g. ADMIN,USER")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := checkCreate(in); err != nil {
		return err
	}
	for _, r := range strings.Split(roles, ",") {
		if r = strings.ToUpper(strings.TrimSpace(r)); r != "" {
			in.Roles = append(in.Roles, domain.Role(r))
		}
	}

	u, err := users.CreateUser(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created user %s (%s) roles=%v\n", u.Username, u.ID, u.Roles.Sorted())
	return nil
}

// checkCreate 与 HTTP 入参校验保持相同的长度规则
func checkCreate(in service.CreateUserInput) error {
	switch {
	case strings.TrimSpace(in.Username) == "":
		return fmt.Errorf("%w: username cannot be blank", domain.ErrValidation)
	case len([]rune(in.Username)) < 3 || len([]rune(in.Username)) > 100:
		return fmt.Errorf("%w: username must be between 3 and 100 characters", domain.ErrValidation)
	case !strings.Contains(in.Email, "@") || len([]rune(in.Email)) > 150:
		return fmt.Errorf("%w: email should be a valid email", domain.ErrValidation)
	case len([]rune(in.Password)) < 8:
		return fmt.Errorf("%w: password must be at least 8 characters long", domain.ErrValidation)
	case len(in.Password) > 72:
		return fmt.Errorf("%w: password cannot exceed 72 bytes", domain.ErrValidation)
	}
	return nil
}

// runToken 校验凭证后为 ADMIN 用户签发 token
func runToken(ctx context.Context, users authenticator, issuer tokenIssuer, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(out)
	login := fs.String("login", "", "username or email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := users.Authenticate(ctx, *login, *password)
	if err != nil {
		return err
	}
	if !u.Roles.Has(domain.RoleAdmin) {
		return errNotAdmin
	}
	tok, err := issuer.IssueFor(u)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintln(out, tok)
	return nil
}
