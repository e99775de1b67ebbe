package validators

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register hooks custom rules into gin's request binding. Safe to call more
// than once.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	// Report fields by their json names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v.RegisterValidation("notblank", notBlank)
}

// notBlank fails strings that are empty after trimming whitespace
func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Message turns a binding error into something a client can act on. The
// first failing field wins.
func Message(err error) (field, msg string) {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "", "Malformed request body"
	}

	fe := verrs[0]
	field = fe.Field()

	switch fe.Tag() {
	case "required", "notblank":
		msg = field + " is required"
	case "email":
		msg = "Enter a valid email address"
	case "len":
		msg = field + " must be exactly " + fe.Param() + " characters long"
	case "min":
		msg = field + " must be at least " + fe.Param() + " characters long"
	case "max":
		msg = field + " can't be longer than " + fe.Param() + " characters"
	case "eqfield":
		msg = "Passwords don't match"
	case "numeric":
		msg = field + " must only contain digits"
	default:
		msg = field + " is invalid"
	}

	return field, msg
}
