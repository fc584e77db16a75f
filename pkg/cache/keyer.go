package cache

// Keyer builds cache keys.
type Keyer interface {
	// TextureKey is the key of fetched texture bytes.
	TextureKey(ref string) string
	// LayoutKey is the key of a computed layout.
	LayoutKey(outfitHash string, opts LayoutKeyOpts) string
	// ArtifactKey is the key of a rendered preview.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the layout inputs besides the outfit itself.
type LayoutKeyOpts struct {
	PoseID string  `json:"pose_id"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ArtifactKeyOpts are the render inputs besides the layout.
type ArtifactKeyOpts struct {
	Format       string `json:"format"`
	Gizmo        string `json:"gizmo,omitempty"`
	DebugAnchors bool   `json:"debug_anchors,omitempty"`
	DebugGrid    bool   `json:"debug_grid,omitempty"`
	Embed        bool   `json:"embed,omitempty"`
	Background   string `json:"background,omitempty"`
}

// DefaultKeyer hashes key inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// TextureKey returns "texture:<ref>". References are short and already
// unique, so they are not hashed.
func (DefaultKeyer) TextureKey(ref string) string {
	return "texture:" + ref
}

// LayoutKey hashes the outfit hash and layout options.
func (DefaultKeyer) LayoutKey(outfitHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", outfitHash, opts)
}

// ArtifactKey hashes the layout hash and render options.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
