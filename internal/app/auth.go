// Package app holds the view models behind the screens: sign-in, the note
// dashboard and the note editor.
package app

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"pocket-notes/internal/api"
	"pocket-notes/internal/models"
	"pocket-notes/internal/ui"
)

const (
	msgPasswordMismatch = "Passwords don't match"
	msgMissingFields    = "Please fill in all fields"
	msgInvalidEmail     = "Enter a valid email address"
	msgAuthFallback     = "Something went wrong. Please try again."
)

type Mode int

const (
	ModeLogin Mode = iota
	ModeSignup
)

func (m Mode) String() string {
	if m == ModeSignup {
		return "signup"
	}
	return "login"
}

// Authenticator is satisfied by *session.Controller.
type Authenticator interface {
	Login(ctx context.Context, creds models.LoginCredentials) error
	Register(ctx context.Context, creds models.RegisterCredentials) error
}

type AuthFields struct {
	Email           string `validate:"required,email"`
	Password        string `validate:"required"`
	PasswordConfirm string
}

type signupFields struct {
	Email           string `validate:"required,email"`
	Password        string `validate:"required"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

// FormError is what the form shows under its fields.
type FormError struct {
	Message string
	Err     error
}

func (e *FormError) Error() string { return e.Message }

func (e *FormError) Unwrap() error { return e.Err }

type AuthForm struct {
	auth     Authenticator
	nav      ui.Navigator
	validate *validator.Validate
}

func NewAuthForm(auth Authenticator, nav ui.Navigator) *AuthForm {
	return &AuthForm{auth: auth, nav: nav, validate: validator.New()}
}

// Submit signs in or registers. Every failure comes back as a *FormError;
// success navigates to the note list.
func (f *AuthForm) Submit(ctx context.Context, mode Mode, form AuthFields) error {
	if msg := f.check(mode, form); msg != "" {
		return &FormError{Message: msg}
	}

	var err error
	if mode == ModeSignup {
		err = f.auth.Register(ctx, models.RegisterCredentials{
			Email:           form.Email,
			Password:        form.Password,
			PasswordConfirm: form.PasswordConfirm,
		})
	} else {
		err = f.auth.Login(ctx, models.LoginCredentials{Email: form.Email, Password: form.Password})
	}
	if err != nil {
		return &FormError{Message: authErrorMessage(err), Err: err}
	}

	f.nav.Navigate(ui.RouteList)
	return nil
}

func (f *AuthForm) check(mode Mode, form AuthFields) string {
	var err error
	if mode == ModeSignup {
		err = f.validate.Struct(signupFields(form))
	} else {
		err = f.validate.Struct(form)
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ""
	}

	msg := ""
	for _, fe := range verrs {
		switch {
		case fe.Tag() == "required":
			return msgMissingFields
		case fe.Field() == "Email":
			msg = msgInvalidEmail
		case fe.Field() == "PasswordConfirm" && msg == "":
			msg = msgPasswordMismatch
		}
	}
	return msg
}

func authErrorMessage(err error) string {
	apiErr, ok := api.AsError(err)
	if !ok {
		return msgAuthFallback
	}
	if apiErr.Detail != "" {
		return apiErr.Detail
	}
	if msg := apiErr.FieldMessage("email"); msg != "" {
		return msg
	}
	if msg := apiErr.FieldMessage("password"); msg != "" {
		return msg
	}
	return msgAuthFallback
}
