package validator

import (
	"errors"
	"regexp"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

const minPasswordLength = 8

func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return errors.New("password must be at least 8 characters long")
	}
	return nil
}
