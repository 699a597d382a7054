package authflow

import (
	"fmt"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/ruralshare/authflow/domain"
)

var validate = validator.New()

type signUpInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Phone    string `validate:"required,numeric,min=8,max=15"`
	Password string `validate:"required,min=8"`
	Role     string `validate:"required,oneof=individual SHG FPO admin"`
}

// validateSignUp checks sign-up input before any network call is made.
func validateSignUp(p domain.SignUpParams) error {
	in := signUpInput{
		Name:     p.Name,
		Email:    p.Email,
		Phone:    p.Phone,
		Password: p.Password,
		Role:     string(p.Role),
	}
	if err := validate.Struct(in); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			f := errs[0]
			msg := fmt.Sprintf("invalid %s", f.StructField())
			return domain.NewFlowError(domain.CategoryValidation, msg, err)
		}
		return domain.NewFlowError(domain.CategoryValidation, "", err)
	}
	if !passwordStrongEnough(p.Password) {
		return domain.NewFlowError(domain.CategoryValidation, domain.ErrWeakPassword.Error(), domain.ErrWeakPassword)
	}
	return nil
}

// passwordStrongEnough requires length >= 8 with upper, lower and digit
// character classes.
func passwordStrongEnough(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// validateOTPCode rejects anything that is not exactly 6 digits.
func validateOTPCode(code string) error {
	if len(code) != 6 || !digitsOnly(code) {
		return domain.NewFlowError(domain.CategoryValidation, domain.ErrInvalidOTPCode.Error(), domain.ErrInvalidOTPCode)
	}
	return nil
}

// validateCredentials checks the sign-in pair.
func validateCredentials(emailOrPhone, password string) error {
	if emailOrPhone == "" || password == "" {
		return domain.NewFlowError(domain.CategoryValidation, "email/phone and password are required", nil)
	}
	return nil
}
