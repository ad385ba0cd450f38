// Package nameutil normalizes and validates package names.
package nameutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/wheelhouse-project/wheelhouse/pkg/errclass"
)

var nameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Normalize canonicalizes a package name: NFC normalization, lower case,
// underscores folded to hyphens. Package names are case-insensitive
// identifiers and wheel filenames use underscores where the package name
// uses hyphens, so both spellings must map to the same key.
func Normalize(name string) string {
	name = norm.NFC.String(name)
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, "_", "-")
}

// Validate checks that a normalized package name is a safe identifier.
func Validate(name string) error {
	if name == "" {
		return errclass.ErrNameInvalid.WithMessage("package name must not be empty")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return errclass.ErrNameInvalid.WithMessagef("package name must not contain control characters: %q", name)
		}
	}
	if strings.ContainsAny(name, "/\\") {
		return errclass.ErrNameInvalid.WithMessagef("package name must not contain separators: %s", name)
	}
	if !nameRegex.MatchString(name) {
		return errclass.ErrNameInvalid.WithMessagef("package name must match [a-z0-9._-]+: %s", name)
	}
	return nil
}
