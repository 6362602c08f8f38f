package users

import (
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"docflow-backend/internal/shared/apperr"
)

var (
	personNamePattern = regexp.MustCompile(`^[A-Za-z\s]+$`)
	validate          = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		var lower, upper, digit bool
		for _, r := range fl.Field().String() {
			switch {
			case unicode.IsLower(r):
				lower = true
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsDigit(r):
				digit = true
			}
		}
		return lower && upper && digit
	})
	return v
}

// fieldMessages maps field and failing tag to the user-facing message; "*" covers every other tag.
var fieldMessages = map[string]map[string]string{
	"employeeId": {
		"alphanum": "Employee ID can only contain letters and numbers",
		"required": "Employee ID is required",
		"*":        "Employee ID must be between 3 and 20 characters",
	},
	"name": {
		"personname": "Name can only contain letters and spaces",
		"*":          "Name must be between 2 and 100 characters",
	},
	"email": {
		"*": "Please enter a valid email address",
	},
	"password": {
		"strongpassword": "Password must contain at least one uppercase letter, one lowercase letter, and one number",
		"required":       "Password is required",
		"*":              "Password must be at least 6 characters long",
	},
	"department": {
		"*": "Department must be between 2 and 50 characters",
	},
	"position": {
		"*": "Position must be between 2 and 50 characters",
	},
}

// check runs struct validation and converts failures into field errors.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Invalid("Validation failed")
	}
	var fields apperr.Fields
	for _, fe := range verrs {
		msgs := fieldMessages[fe.Field()]
		msg, ok := msgs[fe.Tag()]
		if !ok {
			msg = msgs["*"]
		}
		if msg == "" {
			msg = fe.Field() + " is invalid"
		}
		fields.Add(fe.Field(), msg)
	}
	return fields.Err()
}

func (in *SignupInput) normalize() {
	in.EmployeeID = strings.ToUpper(strings.TrimSpace(in.EmployeeID))
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Department = strings.TrimSpace(in.Department)
	in.Position = strings.TrimSpace(in.Position)
}

func (in *LoginInput) normalize() {
	in.EmployeeID = strings.ToUpper(strings.TrimSpace(in.EmployeeID))
}

func (u *ProfileUpdate) normalize() {
	for _, p := range []*string{u.Name, u.Department, u.Position} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

// ValidateSignup normalizes and validates a registration.
func ValidateSignup(in *SignupInput) error {
	in.normalize()
	return check(in)
}

// ValidateLogin normalizes and validates a login request.
func ValidateLogin(in *LoginInput) error {
	in.normalize()
	return check(in)
}

// ValidateProfileUpdate rejects empty updates and out-of-range fields.
func ValidateProfileUpdate(u *ProfileUpdate) error {
	if u.empty() {
		return apperr.Invalid("No valid fields to update")
	}
	u.normalize()
	return check(u)
}

// ValidateListFilter checks the enumerated admin filters.
func ValidateListFilter(f *ListFilter, fields *apperr.Fields) {
	f.Department = strings.TrimSpace(f.Department)
	f.Search = strings.TrimSpace(f.Search)
	switch f.Status {
	case "", "all", "active", "inactive":
	default:
		fields.Add("status", "Status must be active, inactive or all")
	}
	switch f.Role {
	case "", "all", "user", "admin":
	default:
		fields.Add("role", "Role must be user, admin or all")
	}
}
