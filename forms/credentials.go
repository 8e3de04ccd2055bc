// Package forms validates user input before it reaches the session store.
package forms

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/jrsteele09/go-chat-auth/internal/errors"
)

const MinPasswordLength = 8

const (
	msgEmailRequired    = "e-mail обязателен"
	msgEmailInvalid     = "введеный e-mail некорректен"
	msgPasswordRequired = "Пароль обязателен"
	msgPasswordShort    = "Пароль должен содержать как минимум 8 символов"
)

// Credentials is the email/password pair submitted by the login and sign up
// forms.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize returns a copy with surrounding whitespace removed.
func (c Credentials) Normalize() Credentials {
	return Credentials{
		Email:    strings.TrimSpace(c.Email),
		Password: strings.TrimSpace(c.Password),
	}
}

// Validate will run validation rules
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(
			&c.Email,
			validation.Required.Error(msgEmailRequired),
			is.Email.Error(msgEmailInvalid),
		),
		validation.Field(
			&c.Password,
			validation.Required.Error(msgPasswordRequired),
			validation.Length(MinPasswordLength, 0).Error(msgPasswordShort),
		),
	)
}

// FieldErrors flattens a validation error into field -> message. Errors that
// did not come from Validate are returned under "form".
func FieldErrors(err error) map[string]string {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return map[string]string{"form": err.Error()}
	}

	out := make(map[string]string, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		out[field] = fieldErr.Error()
	}
	return out
}

// FirstError returns one field and its message from a validation error,
// preferring the email field.
func FirstError(err error) (field, message string) {
	errs := FieldErrors(err)
	for _, field := range []string{"email", "password", "form"} {
		if msg, ok := errs[field]; ok {
			return field, msg
		}
	}
	return "", ""
}
