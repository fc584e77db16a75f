package texture

import (
	"path/filepath"
	"strings"

	"github.com/matzehuels/tryon/pkg/errors"
)

// Resolver maps an image reference to a loadable location: a local file
// path or an http(s) URL.
type Resolver interface {
	Resolve(ref string) (string, error)
}

// DirResolver resolves relative references against a directory.
type DirResolver struct {
	Root string
}

func (r DirResolver) Resolve(ref string) (string, error) {
	if isURL(ref) {
		return ref, errors.ValidateURL(ref)
	}
	if err := errors.ValidatePath(ref); err != nil {
		return "", err
	}
	return filepath.Join(r.Root, filepath.FromSlash(ref)), nil
}

// CDNResolver resolves relative references (storage keys) against a base
// URL.
type CDNResolver struct {
	Base string
}

func (r CDNResolver) Resolve(ref string) (string, error) {
	if isURL(ref) {
		return ref, errors.ValidateURL(ref)
	}
	if err := errors.ValidatePath(ref); err != nil {
		return "", err
	}
	return strings.TrimRight(r.Base, "/") + "/" + strings.TrimLeft(ref, "/"), nil
}

// NewResolver returns a [CDNResolver] when base is an http(s) URL and a
// [DirResolver] otherwise.
func NewResolver(base string) Resolver {
	if isURL(base) {
		return CDNResolver{Base: base}
	}
	return DirResolver{Root: base}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
