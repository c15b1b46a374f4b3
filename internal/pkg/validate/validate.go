package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	phoneRegex  = regexp.MustCompile(`^\+\d{2}[0-9]{1,13}$`)
	emailRegex  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsRegex = regexp.MustCompile(`^\d+$`)
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

func init() {
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("phone_or_email", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return IsPhone(s) || IsEmail(s)
	})
	// "numeric" also admits signs and decimals; codes are digits only.
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return digitsRegex.MatchString(fl.Field().String())
	})
}

// IsPhone reports whether s is a "+" followed by 3 to 15 digits, the first
// two being the country prefix.
func IsPhone(s string) bool { return phoneRegex.MatchString(s) }

// IsEmail reports whether s has a local@domain.tld shape.
func IsEmail(s string) bool { return emailRegex.MatchString(s) }

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
