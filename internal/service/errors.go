package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/linemk/order-billing/internal/lib/validate"
)

// ErrInvalidCredentials — неверный пароль для существующего пользователя
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError перечисляет все нарушенные поля запроса, а не только первое.
type ValidationError struct {
	Violations []validate.Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Fields группирует сообщения по полям.
func (e *ValidationError) Fields() map[string][]string {
	out := make(map[string][]string, len(e.Violations))
	for _, v := range e.Violations {
		out[v.Field] = append(out[v.Field], v.Message)
	}
	return out
}

// NotFoundError — запись отсутствует или принадлежит другому пользователю.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError — не удалось подобрать свободные идентификаторы за отведенное число попыток.
type ConflictError struct {
	Attempts int
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("identifier collision after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}
