package fitstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/matzehuels/tryon/pkg/fit"
)

// File stores fits as JSON documents, one per user and pose, at
// <dir>/<user>/<pose>.json. Writes go through a temporary file and a rename.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates a file store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create fit store dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) Name() string { return "file" }

// Dir returns the store's root directory.
func (f *File) Dir() string { return f.dir }

func (f *File) Fetch(_ context.Context, user, poseID string, itemIDs []string) ([]fit.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read(user, poseID)
	if err != nil {
		return nil, err
	}
	var out []fit.Record
	for _, id := range itemIDs {
		if r, ok := doc[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *File) Upsert(_ context.Context, rec fit.Record) (fit.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read(rec.UserID, rec.PoseID)
	if err != nil {
		return fit.Record{}, err
	}
	rec = Merge(doc[rec.ItemID], rec)
	doc[rec.ItemID] = rec
	if err := f.write(rec.UserID, rec.PoseID, doc); err != nil {
		return fit.Record{}, err
	}
	return rec, nil
}

func (f *File) Delete(_ context.Context, key fit.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read(key.User, key.Pose)
	if err != nil {
		return err
	}
	if _, ok := doc[key.Item]; !ok {
		return nil
	}
	delete(doc, key.Item)
	return f.write(key.User, key.Pose, doc)
}

func (f *File) Close() error { return nil }

func (f *File) path(user, poseID string) string {
	return filepath.Join(f.dir, url.PathEscape(user), url.PathEscape(poseID)+".json")
}

func (f *File) read(user, poseID string) (map[string]fit.Record, error) {
	data, err := os.ReadFile(f.path(user, poseID))
	if os.IsNotExist(err) {
		return make(map[string]fit.Record), nil
	}
	if err != nil {
		return nil, err
	}
	doc := make(map[string]fit.Record)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path(user, poseID), err)
	}
	return doc, nil
}

func (f *File) write(user, poseID string, doc map[string]fit.Record) error {
	path := f.path(user, poseID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fits-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var _ Store = (*File)(nil)
