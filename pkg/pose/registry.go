package pose

import (
	"os"
	"slices"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tryon/pkg/errors"
)

// CanonicalID is the pose fits are persisted under.
const CanonicalID = "front_v1"

// Registry holds the known poses by id. It is safe for concurrent use.
// Registered poses are immutable: Register stores a private copy and a
// second registration of the same id is rejected.
type Registry struct {
	mu    sync.RWMutex
	poses map[string]*Anchors
}

// NewRegistry creates a registry holding the given poses. Invalid poses
// cause a panic, as they are programming errors in built-in tables.
func NewRegistry(poses ...*Anchors) *Registry {
	r := &Registry{poses: make(map[string]*Anchors, len(poses))}
	for _, p := range poses {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// DefaultRegistry returns a registry holding the built-in poses.
func DefaultRegistry() *Registry {
	return NewRegistry(FrontV1())
}

// Get returns a copy of the pose with the given id.
func (r *Registry) Get(id string) (*Anchors, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.poses[id]
	if !ok {
		return nil, errors.New(errors.ErrCodePoseNotFound, "unknown pose: %s", id)
	}
	return a.clone(), nil
}

// Register validates and adds a pose.
func (r *Registry) Register(a *Anchors) error {
	if a == nil {
		return errors.New(errors.ErrCodeInvalidPose, "nil pose")
	}
	if err := a.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.poses[a.ID]; dup {
		return errors.New(errors.ErrCodeInvalidPose, "pose %s already registered", a.ID)
	}
	r.poses[a.ID] = a.clone()
	return nil
}

// IDs returns the registered pose ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.poses))
	for id := range r.poses {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// poseFile is the on-disk TOML shape of a pose definition.
type poseFile struct {
	ID        string         `toml:"id"`
	Neck      Point          `toml:"neck"`
	Hem       HemLine        `toml:"hem"`
	Boxes     map[string]Box `toml:"boxes"`
	Z         map[string]int `toml:"z"`
	OccluderZ int            `toml:"occluder_z"`
}

// LoadFile reads a pose definition from a TOML file and validates it.
//
//	id = "side_v1"
//	neck = { x = 0.5, y = 0.2 }
//	hem = { x1 = 0.3, y = 0.82, x2 = 0.7 }
//	[boxes.chest]
//	x = 0.35
//	...
//	[z]
//	base_top = 200
func LoadFile(path string) (*Anchors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "pose file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPose, err, "read pose file %s", path)
	}
	return Parse(data)
}

// Parse decodes a TOML pose definition and validates it.
func Parse(data []byte) (*Anchors, error) {
	var f poseFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode pose")
	}

	a := &Anchors{
		ID:        f.ID,
		Neck:      f.Neck,
		Hem:       f.Hem,
		Boxes:     make(map[Region]Box, len(f.Boxes)),
		Z:         make(map[Category]int, len(f.Z)),
		OccluderZ: f.OccluderZ,
	}
	for name, b := range f.Boxes {
		r := Region(name)
		if !slices.Contains(Regions, r) {
			return nil, errors.New(errors.ErrCodeInvalidPose, "pose %s: unknown region %q", f.ID, name)
		}
		a.Boxes[r] = b
	}
	for name, z := range f.Z {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		a.Z[c] = z
	}
	if a.OccluderZ == 0 {
		a.OccluderZ = DefaultOccluderZ
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}
