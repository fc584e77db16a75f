package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tryon/pkg/observability"
)

// logHooks reports observability events as debug log lines. They are
// installed when the CLI runs with --verbose.
type logHooks struct {
	l *log.Logger
}

func installLogHooks(l *log.Logger) {
	h := logHooks{l: l.WithPrefix("trace")}
	observability.SetLayoutHooks(h)
	observability.SetStoreHooks(h)
	observability.SetHTTPHooks(h)
}

func (h logHooks) OnLayout(_ context.Context, poseID string, placed, skipped int, d time.Duration) {
	h.l.Debug("layout", "pose", poseID, "placed", placed, "skipped", skipped, "took", d)
}

func (h logHooks) OnTextureLoad(_ context.Context, ref string, cached bool, err error) {
	if err != nil {
		h.l.Debug("texture", "ref", ref, "err", err)
		return
	}
	h.l.Debug("texture", "ref", ref, "cached", cached)
}

func (h logHooks) OnRender(_ context.Context, format string, size int, d time.Duration, err error) {
	h.l.Debug("render", "format", format, "bytes", size, "took", d, "err", err)
}

func (h logHooks) OnFetch(_ context.Context, backend, poseID string, requested, found int, d time.Duration, err error) {
	h.l.Debug("fits fetch", "store", backend, "pose", poseID, "requested", requested, "found", found, "took", d, "err", err)
}

func (h logHooks) OnSave(_ context.Context, backend, poseID, itemID string, d time.Duration, err error) {
	h.l.Debug("fits save", "store", backend, "pose", poseID, "item", itemID, "took", d, "err", err)
}

func (h logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.l.Debug("http request", "method", method, "host", host, "path", path)
}

func (h logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.l.Debug("http response", "method", method, "host", host, "path", path, "status", status, "took", d)
}

func (h logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.l.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}
