package flows

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldError names the first input field that failed a rule.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// RegistrationInput is the flow-local registration form.
type RegistrationInput struct {
	FirstName string
	LastName  string
	Username  string
	Phone     string
	Role      string
	Password  string
}

// RegistrationRules are the client-side registration constraints.
type RegistrationRules struct {
	SelfRegisterRole  string
	MinPasswordLength int
	Phone             *regexp.Regexp
}

// RoleRejected reports whether err is the role rule of ValidateRegistration.
func RoleRejected(err error) bool {
	fe, ok := err.(*FieldError)
	return ok && fe.Field == "role" && fe.Reason != "is required"
}

// ValidateLogin checks that both credentials are present.
func ValidateLogin(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return &FieldError{Field: "username", Reason: "is required"}
	}
	if password == "" {
		return &FieldError{Field: "password", Reason: "is required"}
	}
	return nil
}

// ValidateRegistration applies rules to in. Fields are checked in form order
// and the first failure is returned.
func ValidateRegistration(in RegistrationInput, rules RegistrationRules) error {
	required := []struct {
		field string
		value string
	}{
		{"firstName", in.FirstName},
		{"lastName", in.LastName},
		{"username", in.Username},
		{"phone", in.Phone},
		{"role", in.Role},
		{"password", in.Password},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &FieldError{Field: r.field, Reason: "is required"}
		}
	}

	if rules.Phone != nil && !rules.Phone.MatchString(strings.TrimSpace(in.Phone)) {
		return &FieldError{Field: "phone", Reason: "is not a valid phone number"}
	}
	if n := utf8.RuneCountInString(in.Password); n < rules.MinPasswordLength {
		return &FieldError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", rules.MinPasswordLength)}
	}
	if !strings.EqualFold(strings.TrimSpace(in.Role), rules.SelfRegisterRole) {
		return &FieldError{Field: "role", Reason: fmt.Sprintf("must be %s", rules.SelfRegisterRole)}
	}
	return nil
}
