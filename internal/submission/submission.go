// Package submission holds the contact submission and the rules it must pass
// on both sides of the network boundary.
package submission

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Field names, in evaluation order.
const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldMessage = "message"
)

const (
	MinNameLength    = 2
	MinMessageLength = 10
)

const (
	reasonName    = "Name must be at least 2 characters"
	reasonEmail   = "Invalid email address"
	reasonMessage = "Message must be at least 10 characters"
)

var validate = validator.New()

// Submission is a contact message that passed validation.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ValidationError identifies a violated field and a reason a visitor can act on.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate checks the fields in order and stops at the first violation.
func Validate(name, email, message string) (Submission, *ValidationError) {
	if v := Violations(name, email, message); len(v) > 0 {
		return Submission{}, &v[0]
	}
	return Submission{Name: name, Email: email, Message: message}, nil
}

// Violations returns every failing field, ordered name, email, message.
func Violations(name, email, message string) []ValidationError {
	var out []ValidationError
	if utf8.RuneCountInString(name) < MinNameLength {
		out = append(out, ValidationError{Field: FieldName, Message: reasonName})
	}
	if !ValidEmail(email) {
		out = append(out, ValidationError{Field: FieldEmail, Message: reasonEmail})
	}
	if utf8.RuneCountInString(message) < MinMessageLength {
		out = append(out, ValidationError{Field: FieldMessage, Message: reasonMessage})
	}
	return out
}

// ValidEmail reports whether s is an address with a dotted domain whose top
// level label is at least two letters. Local-only addresses such as
// "root@localhost" and quoted local parts are rejected.
func ValidEmail(s string) bool {
	if err := validate.Var(s, "required,email"); err != nil {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || strings.HasPrefix(s, `"`) {
		return false
	}
	domain := s[at+1:]
	dot := strings.LastIndexByte(domain, '.')
	if dot <= 0 {
		return false
	}
	tld := domain[dot+1:]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
