package session

import (
	"fmt"
	"regexp"
)

var nameRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateName checks that name is usable as a directory under BaseDir.
// Names start with a letter or digit so they never read as a flag.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid session name %q: use 1-64 lowercase letters, digits, '-' or '_', starting with a letter or digit", name)
	}
	return nil
}
