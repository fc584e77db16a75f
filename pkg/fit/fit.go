// Package fit defines the persisted placement of a garment on a pose.
//
// A [Transform] is the operator's adjustment relative to the garment's
// anchor: an offset in mannequin-normalized units, a scale relative to the
// base fit, and a rotation in degrees. Because every number is relative to
// the mannequin and the anchor box, a transform renders identically at any
// canvas size.
package fit

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/tryon/pkg/errors"
)

// DefaultPrecision is the number of decimal digits transforms are rounded
// to when persisted.
const DefaultPrecision = 6

// MeshPoint is one control point of an optional deformation mesh. The mesh
// is stored and returned unchanged; nothing in this module interprets it.
type MeshPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform is a garment placement relative to its anchor.
//
// X and Y are offsets from the anchor center in units of mannequin width
// and height. Scale multiplies the base fit (1 = fills the anchor box).
type Transform struct {
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	Scale       float64     `json:"scale"`
	RotationDeg float64     `json:"rotationDeg"`
	Mesh        []MeshPoint `json:"-"`
}

// Identity returns the default transform: anchored, unscaled, unrotated.
func Identity() Transform {
	return Transform{Scale: 1}
}

// IsIdentity reports whether t places the garment exactly on its anchor.
func (t Transform) IsIdentity() bool {
	return t.X == 0 && t.Y == 0 && t.Scale == 1 && t.RotationDeg == 0
}

// Validate rejects non-finite numbers and non-positive scales.
func (t Transform) Validate() error {
	for _, v := range []float64{t.X, t.Y, t.Scale, t.RotationDeg} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New(errors.ErrCodeInvalidTransform, "transform contains a non-finite number")
		}
	}
	if t.Scale <= 0 {
		return errors.New(errors.ErrCodeInvalidTransform, "scale must be positive, got %v", t.Scale)
	}
	return nil
}

// Quantize rounds the four numbers to the given number of decimal digits.
// The mesh is passed through.
func (t Transform) Quantize(digits int) Transform {
	p := math.Pow10(digits)
	round := func(v float64) float64 {
		r := math.Round(v*p) / p
		if r == 0 {
			return 0 // drop negative zero
		}
		return r
	}
	t.X = round(t.X)
	t.Y = round(t.Y)
	t.Scale = round(t.Scale)
	t.RotationDeg = round(t.RotationDeg)
	return t
}

// Key identifies one persisted fit. At most one record exists per key.
type Key struct {
	User string
	Pose string
	Item string
}

// Record is a persisted fit as exchanged with stores and over HTTP.
type Record struct {
	ID        string      `json:"id,omitempty"`
	UserID    string      `json:"userId"`
	ItemID    string      `json:"itemId"`
	PoseID    string      `json:"poseId"`
	Transform Transform   `json:"transform"`
	Mesh      []MeshPoint `json:"mesh,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// NewRecord builds a record for the given key with a fresh id. The
// transform is quantized to [DefaultPrecision].
func NewRecord(user, item, poseID string, t Transform) Record {
	return Record{
		ID:        uuid.NewString(),
		UserID:    user,
		ItemID:    item,
		PoseID:    poseID,
		Transform: t.Quantize(DefaultPrecision),
		Mesh:      t.Mesh,
		UpdatedAt: time.Now().UTC(),
	}
}

// Fit returns the record's transform with the mesh attached.
func (r Record) Fit() Transform {
	t := r.Transform
	t.Mesh = r.Mesh
	return t
}

// Key returns the upsert key of the record.
func (r Record) Key() Key {
	return Key{User: r.UserID, Pose: r.PoseID, Item: r.ItemID}
}

// Validate checks the identifiers and the transform.
func (r Record) Validate() error {
	if r.UserID == "" {
		return errors.New(errors.ErrCodeUnauthorized, "missing user")
	}
	if err := errors.ValidateItemID(r.ItemID); err != nil {
		return err
	}
	if err := errors.ValidatePoseID(r.PoseID); err != nil {
		return err
	}
	return r.Transform.Validate()
}
