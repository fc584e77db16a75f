package cache

// ScopedKeyer prefixes every key of an inner Keyer. The CLI and the API
// server scope keys by asset root, since image references are only
// unique within one root:
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "assets:3f2a9c01d4e5:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or the default keyer when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = DefaultKeyer{}
	}
	return ScopedKeyer{inner: inner, prefix: prefix}
}

func (k ScopedKeyer) TextureKey(ref string) string {
	return k.prefix + k.inner.TextureKey(ref)
}

func (k ScopedKeyer) LayoutKey(outfitHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(outfitHash, opts)
}

func (k ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}
