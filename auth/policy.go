package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/nbutton23/zxcvbn-go"
)

const specialChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_{|}~`"

// MinMasterPasswordLength is the shortest master password the policy accepts.
const MinMasterPasswordLength = 12

// ErrWeakPassword wraps every policy rejection so callers can treat them uniformly.
var ErrWeakPassword = errors.New("master password does not meet policy")

// ValidateOptions tunes ValidateMasterPasswordAdvanced.
type ValidateOptions struct {
	// MinZXCVBNScore is the lowest accepted zxcvbn score (0-4). Zero disables the check.
	MinZXCVBNScore int
	// UserInputs are penalised by zxcvbn, typically the vault name.
	UserInputs []string
	// EnableHIBP queries the Pwned Passwords range API.
	EnableHIBP bool
	// Breach overrides the default HIBP client.
	Breach *BreachChecker
}

// DefaultValidateOptions returns the policy used when creating a vault.
func DefaultValidateOptions() ValidateOptions {
	return ValidateOptions{MinZXCVBNScore: 3}
}

// ValidateMasterPassword applies the master password composition rules.
func ValidateMasterPassword(pw string) error {
	if strings.TrimSpace(pw) == "" {
		return fmt.Errorf("%w: password cannot be empty", ErrWeakPassword)
	}
	if len([]rune(pw)) < MinMasterPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrWeakPassword, MinMasterPasswordLength)
	}
	if !hasUpper(pw) || !hasLower(pw) {
		return fmt.Errorf("%w: password must include both uppercase and lowercase letters", ErrWeakPassword)
	}
	if !hasDigit(pw) {
		return fmt.Errorf("%w: password must include a digit", ErrWeakPassword)
	}
	if !hasSpecial(pw) {
		return fmt.Errorf("%w: password must include a special character", ErrWeakPassword)
	}
	return nil
}

// ValidateMasterPasswordAdvanced runs the composition rules, then the zxcvbn
// entropy estimate, then (optionally) the breach lookup.
func ValidateMasterPasswordAdvanced(ctx context.Context, pw string, opts ValidateOptions) error {
	if err := ValidateMasterPassword(pw); err != nil {
		return err
	}

	if opts.MinZXCVBNScore > 0 {
		res := zxcvbn.PasswordStrength(pw, opts.UserInputs)
		if res.Score < opts.MinZXCVBNScore {
			return fmt.Errorf("%w: password is too weak (score %d of 4, need %d)", ErrWeakPassword, res.Score, opts.MinZXCVBNScore)
		}
	}

	if opts.EnableHIBP {
		checker := opts.Breach
		if checker == nil {
			checker = NewBreachChecker()
		}
		res, err := checker.Check(ctx, pw)
		if err != nil {
			return fmt.Errorf("breach check: %w", err)
		}
		if res.Found {
			return fmt.Errorf("%w: password appears in %d known breaches", ErrWeakPassword, res.Count)
		}
	}
	return nil
}

func hasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func hasLower(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func hasSpecial(s string) bool {
	for _, r := range s {
		if strings.ContainsRune(specialChars, r) {
			return true
		}
	}
	return false
}
