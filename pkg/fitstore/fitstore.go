// Package fitstore persists garment fits, one record per (user, pose, item).
//
// Two contracts live here. [Adapter] is what the try-on session consumes:
// fetch the fits for a set of items and save a single fit, with the user
// implicit. [Store] is what backends implement: explicit keys, upsert
// semantics, missing records simply absent from fetch results.
// [ForUser] turns a Store into an Adapter for one user.
//
// # Backends
//
//   - [Memory]: in-process map, for tests and the local editor
//   - [File]: one JSON document per user and pose under a directory
//   - redisstore: a Redis hash per user and pose
//   - mongostore: the item_fits collection with a unique compound index
//   - remote: the HTTP API served by pkg/api
//
// Transforms are quantized to [fit.DefaultPrecision] digits on save.
package fitstore

import (
	"context"
	"time"

	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/observability"
)

// Adapter is the persistence contract of a try-on session. Both calls are
// fallible; callers fall back to default fits when FetchFits fails and
// surface SaveFit failures without retrying.
type Adapter interface {
	// FetchFits returns the saved transforms of the given items on pose.
	// Items without a saved fit are absent from the map.
	FetchFits(ctx context.Context, poseID string, itemIDs []string) (map[string]fit.Transform, error)

	// SaveFit creates or overwrites the fit of itemID on pose.
	SaveFit(ctx context.Context, itemID, poseID string, t fit.Transform) (fit.Record, error)
}

// Store is a fit record backend.
type Store interface {
	// Name identifies the backend in logs and hooks.
	Name() string

	// Fetch returns the existing records of user on pose for itemIDs.
	Fetch(ctx context.Context, user, poseID string, itemIDs []string) ([]fit.Record, error)

	// Upsert stores rec under rec.Key(), replacing any previous record
	// with the same key, and returns the stored record.
	Upsert(ctx context.Context, rec fit.Record) (fit.Record, error)

	// Delete removes the record under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key fit.Key) error

	Close() error
}

// ForUser binds store to user.
func ForUser(store Store, user string) Adapter {
	return &userAdapter{store: store, user: user}
}

type userAdapter struct {
	store Store
	user  string
}

func (a *userAdapter) FetchFits(ctx context.Context, poseID string, itemIDs []string) (map[string]fit.Transform, error) {
	recs, err := Fetch(ctx, a.store, a.user, poseID, itemIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]fit.Transform, len(recs))
	for _, r := range recs {
		out[r.ItemID] = r.Fit()
	}
	return out, nil
}

// Fetch validates the ids and returns the records of user on pose for
// itemIDs. Duplicate and empty ids are dropped.
func Fetch(ctx context.Context, store Store, user, poseID string, itemIDs []string) ([]fit.Record, error) {
	if err := errors.ValidatePoseID(poseID); err != nil {
		return nil, err
	}
	ids := dedupe(itemIDs)
	for _, id := range ids {
		if err := errors.ValidateItemID(id); err != nil {
			return nil, err
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	start := time.Now()
	recs, err := store.Fetch(ctx, user, poseID, ids)
	observability.Store().OnFetch(ctx, store.Name(), poseID, len(ids), len(recs), time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "fetch fits for pose %s", poseID)
	}
	return recs, nil
}

func (a *userAdapter) SaveFit(ctx context.Context, itemID, poseID string, t fit.Transform) (fit.Record, error) {
	rec := fit.NewRecord(a.user, itemID, poseID, t)
	if err := rec.Validate(); err != nil {
		return fit.Record{}, err
	}

	start := time.Now()
	saved, err := a.store.Upsert(ctx, rec)
	observability.Store().OnSave(ctx, a.store.Name(), poseID, itemID, time.Since(start), err)
	if err != nil {
		return fit.Record{}, errors.Wrap(errors.ErrCodeStore, err, "save fit %s", itemID)
	}
	return saved, nil
}

// Merge applies rec onto an existing record with the same key: the
// existing id is kept, everything else comes from rec.
func Merge(existing, rec fit.Record) fit.Record {
	if existing.ID != "" {
		rec.ID = existing.ID
	}
	return rec
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
