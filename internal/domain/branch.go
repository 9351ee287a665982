package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// validBranchNameChars matches the characters accepted in configured branch names
var validBranchNameChars = regexp.MustCompile(`^[a-zA-Z0-9._/-]+$`)

// ValidateBranchName checks a user-provided branch name, such as the configured
// parent branch, against git's ref rules. The check is stricter than
// git-check-ref-format: only alphanumerics and '.', '_', '-', '/' are accepted.
func ValidateBranchName(name string) error {
	if name == "" {
		return fmt.Errorf("branch name cannot be empty")
	}

	for _, prefix := range []string{".", "/", "-"} {
		if strings.HasPrefix(name, prefix) {
			return fmt.Errorf("branch name cannot start with '%s'", prefix)
		}
	}
	for _, suffix := range []string{".lock", ".", "/"} {
		if strings.HasSuffix(name, suffix) {
			return fmt.Errorf("branch name cannot end with '%s'", suffix)
		}
	}
	for _, seq := range []string{"..", "//", "@{"} {
		if strings.Contains(name, seq) {
			return fmt.Errorf("branch name cannot contain '%s'", seq)
		}
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("branch name cannot contain control characters")
		}
	}

	if !validBranchNameChars.MatchString(name) {
		return fmt.Errorf("branch name contains invalid characters (only alphanumeric, '.', '_', '-', '/' allowed)")
	}
	if name == DetachedHead {
		return fmt.Errorf("branch name cannot be %q", DetachedHead)
	}

	return nil
}
