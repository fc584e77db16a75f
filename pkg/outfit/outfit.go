// Package outfit reads outfit files: the pose, the mannequin image and the
// garments to lay out on it.
//
// Outfits are JSON or TOML, chosen by file extension:
//
//	pose = "front_v1"
//	mannequin = "mannequin/front_v1.png"
//	occluders = ["mannequin/front_v1_arms.png"]
//
//	[[items]]
//	id = "tee-01"
//	image = "closet/tee-01.png"
//	layerCategory = "base-top"
//
//	[[items]]
//	id = "sneakers"
//	image = "closet/sneakers.png"
//	layerCategory = "footwear"
//	fit = { x = 0.01, y = 0.0, scale = 1.1, rotationDeg = 0 }
//
// An item's fit is the placement used when no stored fit exists.
package outfit

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tryon/pkg/cache"
	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/pose"
	"github.com/matzehuels/tryon/pkg/scene"
)

// Outfit is a set of garments on a pose.
type Outfit struct {
	Pose      string   `json:"pose" toml:"pose"`
	Mannequin string   `json:"mannequin" toml:"mannequin"`
	Occluders []string `json:"occluders,omitempty" toml:"occluders"`
	Items     []Item   `json:"items" toml:"items"`
}

// Item is one garment of an outfit.
type Item struct {
	ID            string         `json:"id" toml:"id"`
	Image         string         `json:"image" toml:"image"`
	LayerCategory string         `json:"layerCategory" toml:"layerCategory"`
	Z             *int           `json:"z,omitempty" toml:"z"`
	Fit           *fit.Transform `json:"fit,omitempty" toml:"fit"`
}

// Format is an outfit file format.
type Format string

const (
	JSON Format = "json"
	TOML Format = "toml"
)

// FormatOf returns the format implied by a file name.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".toml":
		return TOML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported outfit file %q (want .json or .toml)", path)
}

// Load reads and validates an outfit file.
func Load(path string) (*Outfit, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "outfit %s", path)
		}
		return nil, err
	}
	return Parse(data, format)
}

// Parse decodes and validates an outfit. A missing pose defaults to
// [pose.CanonicalID].
func Parse(data []byte, format Format) (*Outfit, error) {
	var o Outfit
	var err error
	switch format {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&o)
	case TOML:
		_, err = toml.Decode(string(data), &o)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown outfit format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode outfit")
	}
	if o.Pose == "" {
		o.Pose = pose.CanonicalID
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

// Validate checks identifiers and image references. Items with an unknown
// layer category are accepted and attach to the chest.
func (o *Outfit) Validate() error {
	if err := errors.ValidatePoseID(o.Pose); err != nil {
		return err
	}
	if o.Mannequin != "" {
		if err := errors.ValidateImageRef(o.Mannequin); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "mannequin")
		}
	}
	for _, ref := range o.Occluders {
		if err := errors.ValidateImageRef(ref); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "occluder")
		}
	}
	for i, it := range o.Items {
		if err := errors.ValidateItemID(it.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "item %d", i)
		}
		if it.Image != "" {
			if err := errors.ValidateImageRef(it.Image); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "item %s", it.ID)
			}
		}
	}
	return nil
}

// Category returns the item's parsed layer category. Unknown names are
// returned lower-cased as-is.
func (it Item) Category() pose.Category {
	if c, err := pose.ParseCategory(it.LayerCategory); err == nil {
		return c
	}
	return pose.Category(strings.ToLower(strings.TrimSpace(it.LayerCategory)))
}

// SceneItems converts the outfit into layout items. Stored fits, keyed by
// item id, take precedence over fits written in the outfit.
func (o *Outfit) SceneItems(stored map[string]fit.Transform) []scene.Item {
	out := make([]scene.Item, 0, len(o.Items))
	for _, it := range o.Items {
		si := scene.Item{ID: it.ID, ImageRef: it.Image, Category: it.Category(), Z: it.Z}
		if t, ok := stored[it.ID]; ok {
			si.Fit = &t
		} else if it.Fit != nil {
			t := *it.Fit
			si.Fit = &t
		}
		out = append(out, si)
	}
	return out
}

// ItemIDs returns the item ids in file order.
func (o *Outfit) ItemIDs() []string {
	ids := make([]string, len(o.Items))
	for i, it := range o.Items {
		ids[i] = it.ID
	}
	return ids
}

// ImageRefs returns every image the outfit needs, mannequin first.
func (o *Outfit) ImageRefs() []string {
	var refs []string
	if o.Mannequin != "" {
		refs = append(refs, o.Mannequin)
	}
	refs = append(refs, o.Occluders...)
	for _, it := range o.Items {
		if it.Image != "" {
			refs = append(refs, it.Image)
		}
	}
	return refs
}

// Hash returns a content hash of the outfit for cache keys.
func (o *Outfit) Hash() string {
	data, _ := json.Marshal(o)
	return cache.Hash(data)
}
