// Package validators contains the request schema of every operation and the
// rules they are checked against
package validators

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Operation names a request kind. Each kind has exactly one schema type.
type Operation int

const (
	OpRegister Operation = iota + 1
	OpLogin
	OpRequestVerification
	OpVerify
	OpRequestReset
	OpChangePassword
	OpReminder
	OpAddTask
)

var opNames = map[Operation]string{
	OpRegister:            "register",
	OpLogin:               "login",
	OpRequestVerification: "reqverify",
	OpVerify:              "verify",
	OpRequestReset:        "reset",
	OpChangePassword:      "change",
	OpReminder:            "reminder",
	OpAddTask:             "addtugas",
}

func (o Operation) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

type Schema interface {
	Operation() Operation
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

type RequestVerificationRequest struct {
	Email string `json:"email" validate:"required"`
}

type VerifyRequest struct {
	Email string `json:"email" validate:"required"`
	Token string `json:"token" validate:"required"`
}

type RequestResetRequest struct {
	Email string `json:"email" validate:"required"`
}

type ChangePasswordRequest struct {
	NewPass     string `json:"newPass" validate:"required,password"`
	ConfirmPass string `json:"confirmPass" validate:"required,eqfield=NewPass"`
	Email       string `json:"email" validate:"required"`
	Token       string `json:"token" validate:"required"`
}

type ReminderRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Major       string `json:"major" validate:"required"`
	Time        string `json:"time" validate:"required,reminder_time"`
}

type AddTaskRequest struct {
	Category    string `json:"category" validate:"required"`
	Deadline    string `json:"deadline" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

func (RegisterRequest) Operation() Operation            { return OpRegister }
func (LoginRequest) Operation() Operation               { return OpLogin }
func (RequestVerificationRequest) Operation() Operation { return OpRequestVerification }
func (VerifyRequest) Operation() Operation              { return OpVerify }
func (RequestResetRequest) Operation() Operation        { return OpRequestReset }
func (ChangePasswordRequest) Operation() Operation      { return OpChangePassword }
func (ReminderRequest) Operation() Operation            { return OpReminder }
func (AddTaskRequest) Operation() Operation             { return OpAddTask }

type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every field of a schema that failed its rules.
type ValidationError struct {
	Operation Operation
	Fields    []FieldError
}

// Error renders the fields as "(field) message; " pairs.
func (e *ValidationError) Error() string {
	var b strings.Builder
	for _, f := range e.Fields {
		fmt.Fprintf(&b, "(%s) %s; ", f.Field, f.Message)
	}
	return strings.TrimSpace(b.String())
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return PasswordValidator(fl.Field().String()) == nil
	})

	v.RegisterValidation("reminder_time", func(fl validator.FieldLevel) bool {
		_, err := ParseReminderTime(fl.Field().String())
		return err == nil
	})

	return v
}

// Check runs the rules of s. Failures are returned as *ValidationError.
func Check(s Schema) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Operation: s.Operation()}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}

	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return ErrEmailInvalid.Error()
	case "password":
		if err := PasswordValidator(fmt.Sprint(fe.Value())); err != nil {
			return err.Error()
		}
		return "invalid password"
	case "eqfield":
		return "must match " + lowerFirst(fe.Param())
	case "reminder_time":
		return "Datetime not match"
	case "max":
		return "must be at most " + fe.Param() + " characters long"
	default:
		return "failed on " + fe.Tag()
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
