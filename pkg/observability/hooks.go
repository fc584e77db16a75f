// Package observability lets a binary observe layout passes, fit
// persistence and HTTP traffic without the libraries depending on a
// metrics backend.
//
// Libraries report through the package-level accessors:
//
//	start := time.Now()
//	recs, err := store.Fetch(ctx, user, poseID, ids)
//	observability.Store().OnFetch(ctx, "redis", poseID, len(ids), len(recs), time.Since(start), err)
//
// A binary installs its own implementations once, before serving:
//
//	observability.SetStoreHooks(myStoreHooks{})
//
// Until then every accessor returns a no-op.
package observability

import (
	"context"
	"sync"
	"time"
)

// LayoutHooks observes layout passes, texture loads and renders.
type LayoutHooks interface {
	OnLayout(ctx context.Context, poseID string, placed, skipped int, d time.Duration)
	// OnTextureLoad reports one texture request; cached is true when it was
	// served from memory or the byte cache.
	OnTextureLoad(ctx context.Context, ref string, cached bool, err error)
	OnRender(ctx context.Context, format string, size int, d time.Duration, err error)
}

// StoreHooks observes fit persistence. backend is the store name.
type StoreHooks interface {
	OnFetch(ctx context.Context, backend, poseID string, requested, found int, d time.Duration, err error)
	OnSave(ctx context.Context, backend, poseID, itemID string, d time.Duration, err error)
}

// HTTPHooks observes outgoing requests and served responses.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, status int, d time.Duration)
	// OnError reports transport failures that produced no response.
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopLayoutHooks ignores every event.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnLayout(context.Context, string, int, int, time.Duration)   {}
func (NoopLayoutHooks) OnTextureLoad(context.Context, string, bool, error)          {}
func (NoopLayoutHooks) OnRender(context.Context, string, int, time.Duration, error) {}

// NoopStoreHooks ignores every event.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnFetch(context.Context, string, string, int, int, time.Duration, error) {}
func (NoopStoreHooks) OnSave(context.Context, string, string, string, time.Duration, error)    {}

// NoopHTTPHooks ignores every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

type registry struct {
	mu     sync.RWMutex
	layout LayoutHooks
	store  StoreHooks
	http   HTTPHooks
}

var hooks = registry{
	layout: NoopLayoutHooks{},
	store:  NoopStoreHooks{},
	http:   NoopHTTPHooks{},
}

// SetLayoutHooks installs h. A nil h is ignored.
func SetLayoutHooks(h LayoutHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.layout = h
	hooks.mu.Unlock()
}

// SetStoreHooks installs h. A nil h is ignored.
func SetStoreHooks(h StoreHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.store = h
	hooks.mu.Unlock()
}

// SetHTTPHooks installs h. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h == nil {
		return
	}
	hooks.mu.Lock()
	hooks.http = h
	hooks.mu.Unlock()
}

// Layout returns the installed layout hooks.
func Layout() LayoutHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.layout
}

// Store returns the installed store hooks.
func Store() StoreHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.store
}

// HTTP returns the installed HTTP hooks.
func HTTP() HTTPHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.http
}

// Reset reinstalls the no-op hooks. Tests use it to undo Set calls.
func Reset() {
	hooks.mu.Lock()
	hooks.layout = NoopLayoutHooks{}
	hooks.store = NoopStoreHooks{}
	hooks.http = NoopHTTPHooks{}
	hooks.mu.Unlock()
}
