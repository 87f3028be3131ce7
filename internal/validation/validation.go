package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxFeedbackLength    = 2000
	MinRating            = 1
	MaxRating            = 5
)

// ValidationError represents a validation error on a single input field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err carries a ValidationError
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidateTitle checks a recording title
func ValidateTitle(title string) error {
	return validateText("title", title, MaxTitleLength)
}

// ValidateBookTitle checks an assignment's book title
func ValidateBookTitle(title string) error {
	return validateText("book_title", title, MaxTitleLength)
}

// ValidateDescription checks an optional free-text field
func ValidateDescription(field string, description *string, max int) error {
	if description == nil {
		return nil
	}
	if utf8.RuneCountInString(*description) > max {
		return ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters", max)}
	}
	return nil
}

// ValidateRating checks a parent's 1-5 rating
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ValidationError{Field: "parent_rating", Message: fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating)}
	}
	return nil
}

func validateText(field, value string, max int) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if utf8.RuneCountInString(value) > max {
		return ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, max)}
	}
	return nil
}
