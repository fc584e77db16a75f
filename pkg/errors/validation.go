package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// maxIDLength bounds item and pose identifiers.
const maxIDLength = 128

// idRegex matches identifiers accepted for items and poses: letters, digits,
// dash, underscore, dot and colon (for namespaced ids like "closet:123").
var idRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]*$`)

// userRegex also admits e-mail style identities.
var userRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:@+-]*$`)

// ValidateUserID validates a caller identity.
func ValidateUserID(id string) error {
	if id == "" || len(id) > maxIDLength || !userRegex.MatchString(id) {
		return New(ErrCodeUnauthorized, "invalid user id")
	}
	return nil
}

// ValidateItemID validates a garment item identifier.
func ValidateItemID(id string) error {
	if err := validateID(id); err != nil {
		return New(ErrCodeInvalidInput, "item id %s", err.Message)
	}
	return nil
}

// ValidatePoseID validates a pose identifier such as "front_v1".
func ValidatePoseID(id string) error {
	if err := validateID(id); err != nil {
		return New(ErrCodeInvalidPose, "pose id %s", err.Message)
	}
	return nil
}

func validateID(id string) *Error {
	if id == "" {
		return New(ErrCodeInvalidInput, "cannot be empty")
	}
	if len(id) > maxIDLength {
		return New(ErrCodeInvalidInput, "too long (max %d characters)", maxIDLength)
	}
	if !idRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "contains invalid characters: %q", id)
	}
	return nil
}

const maxPathLength = 500

// ValidatePath accepts a relative, slash-separated asset path that stays
// inside its root. Dots inside names are fine; ".." segments are not.
func ValidatePath(p string) error {
	switch {
	case p == "":
		return New(ErrCodeInvalidPath, "path cannot be empty")
	case len(p) > maxPathLength:
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	case strings.ContainsFunc(p, unicode.IsControl):
		return New(ErrCodeInvalidPath, "path contains control characters")
	case strings.ContainsRune(p, '\\'):
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	case strings.HasPrefix(p, "/"):
		return New(ErrCodeInvalidPath, "path must be relative")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return New(ErrCodeInvalidPath, "path cannot leave the asset root")
		}
	}
	return nil
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	if raw == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL has no host")
	}
	return nil
}

// ValidateImageRef validates a garment image reference: an http(s) URL
// or a relative asset path.
func ValidateImageRef(ref string) error {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ValidateURL(ref)
	}
	return ValidatePath(ref)
}
