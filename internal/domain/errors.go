package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("user not found")
	ErrDuplicateResource   = errors.New("duplicate resource")
	ErrConstraintViolation = errors.New("unique constraint violation")
	ErrHashing             = errors.New("password hashing failed")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInactiveUser        = errors.New("user is inactive")
	ErrValidation          = errors.New("validation failed")
)

// DuplicateResourceError username / email 冲突
type DuplicateResourceError struct {
	Field string
	Value string
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("%s '%s' already exists", e.Field, e.Value)
}

func (e *DuplicateResourceError) Is(target error) bool { return target == ErrDuplicateResource }

// ConstraintError 存储层唯一约束冲突，Field 可能为空（无法从驱动错误中判断）
type ConstraintError struct {
	Field string
	Err   error
}

func (e *ConstraintError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("unique constraint violation on %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("unique constraint violation: %v", e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

func (e *ConstraintError) Is(target error) bool { return target == ErrConstraintViolation }
