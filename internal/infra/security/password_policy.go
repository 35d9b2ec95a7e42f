package security

import (
	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const (
	// MinPasswordLength matches the public registration contract: shorter
	// passwords are rejected as validation failures.
	MinPasswordLength = 8

	// minZxcvbnScore rejects only catastrophically guessable passwords
	// (top-of-dictionary values); anything scoring 1+ passes.
	minZxcvbnScore = 1
)

// PasswordPolicyError describes a password policy violation in terms safe to
// return to the client.
type PasswordPolicyError struct {
	Message string
}

func (e *PasswordPolicyError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordPolicy validates registration passwords: a minimum length plus a
// zxcvbn strength floor fed with the user's own identifiers.
type PasswordPolicy struct {
	minLength int
	minScore  int
}

// NewPasswordPolicy builds the service password policy.
func NewPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		minLength: MinPasswordLength,
		minScore:  minZxcvbnScore,
	}
}

// Validate checks the password against the policy. userInputs (name, email)
// lower the strength score of passwords derived from them.
func (p *PasswordPolicy) Validate(password string, userInputs ...string) error {
	if len(password) < p.minLength {
		return &PasswordPolicyError{
			Message: "Password must be at least 8 characters long",
		}
	}

	inputs := make([]string, 0, len(userInputs))
	for _, input := range userInputs {
		if input != "" {
			inputs = append(inputs, input)
		}
	}

	result := zxcvbn.PasswordStrength(password, inputs)
	if result.Score < p.minScore {
		return &PasswordPolicyError{
			Message: "Password is too easy to guess",
		}
	}

	return nil
}
