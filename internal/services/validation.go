package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EntryInput is a public raffle submission.
type EntryInput struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email,max=255"`
	Phone     string `json:"phone" binding:"required,phone"`
}

// PrizeInput creates a prize.
type PrizeInput struct {
	Name        string  `json:"name" binding:"required,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// PrizeUpdate changes the given prize fields; nil fields are left alone.
type PrizeUpdate struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	IsAvailable *bool   `json:"isAvailable"`
}

var fieldMessages = map[string]map[string]string{
	"firstName": {
		"required": "First name is required",
		"max":      "First name too long",
	},
	"lastName": {
		"required": "Last name is required",
		"max":      "Last name too long",
	},
	"email": {
		"required": "Please enter a valid email address",
		"email":    "Please enter a valid email address",
		"max":      "Email too long",
	},
	"phone": {
		"required": "Phone number is required",
		"phone":    "Phone must be exactly 10 digits in format 555-123-4567",
	},
	"name": {
		"required": "Prize name is required",
		"min":      "Prize name is required",
		"max":      "Prize name too long",
	},
	"description": {
		"max": "Description too long",
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	RegisterValidators(v)
	return v
}

// RegisterValidators installs the raffle's custom rules and reports fields by
// their JSON names. It is also applied to gin's binding engine.
func RegisterValidators(v *validator.Validate) {
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, ok := NormalizePhone(fl.Field().String())
		return ok
	})
}

// ValidationFromError converts validator errors into a ValidationError.
// Other errors are returned unchanged.
func ValidationFromError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, verr := range verrs {
		if _, seen := fields[verr.Field()]; seen {
			continue
		}
		if msgs, ok := fieldMessages[verr.Field()]; ok {
			if msg, ok := msgs[verr.Tag()]; ok {
				fields[verr.Field()] = msg
				continue
			}
		}
		fields[verr.Field()] = verr.Field() + " is invalid"
	}
	return &ValidationError{Fields: fields}
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return ValidationFromError(err)
	}
	return nil
}

// NormalizePhone returns phone in NNN-NNN-NNNN form.
// Spaces, dots, dashes and parentheses are accepted as separators; exactly ten digits are required.
func NormalizePhone(phone string) (string, bool) {
	digits := make([]byte, 0, 10)
	for _, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, byte(r))
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", false
		}
	}
	if len(digits) != 10 {
		return "", false
	}
	d := string(digits)
	return d[0:3] + "-" + d[3:6] + "-" + d[6:], true
}
