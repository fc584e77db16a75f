// Package texture loads garment and mannequin images.
//
// A [Loader] resolves image references through a [Resolver], fetches local
// files or remote URLs, decodes them and keeps the decoded images in
// memory. Remote bytes are additionally stored in a byte [cache.Cache] so
// that repeated CLI runs do not hit the CDN again.
//
// Loader implements scene.TextureSource.
package texture

import (
	"context"
	"image"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/matzehuels/tryon/pkg/cache"
	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/httputil"
	"github.com/matzehuels/tryon/pkg/observability"
)

// DefaultTTL is how long fetched texture bytes stay in the byte cache.
const DefaultTTL = 7 * 24 * time.Hour

// Loader is a concurrency-safe texture loader and cache.
type Loader struct {
	resolver Resolver
	bytes    cache.Cache
	keyer    cache.Keyer
	client   *http.Client
	ttl      time.Duration

	mu    sync.RWMutex
	items map[string]*entry
}

type entry struct {
	img *image.NRGBA
	err error
}

// Option configures a [Loader].
type Option func(*Loader)

// WithCache stores fetched remote bytes in c.
func WithCache(c cache.Cache, k cache.Keyer) Option {
	return func(l *Loader) { l.bytes, l.keyer = c, k }
}

// WithHTTPClient replaces the client used for remote textures.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// NewLoader creates a loader resolving references with r.
func NewLoader(r Resolver, opts ...Option) *Loader {
	l := &Loader{
		resolver: r,
		bytes:    cache.NewNullCache(),
		keyer:    cache.NewDefaultKeyer(),
		client:   &http.Client{Timeout: 30 * time.Second},
		ttl:      DefaultTTL,
		items:    make(map[string]*entry),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load returns the decoded image for ref. Failures are cached too, so a
// broken reference is not refetched on every layout pass; call [Loader.Forget]
// to retry it.
func (l *Loader) Load(ctx context.Context, ref string) (*image.NRGBA, error) {
	// Fast path: read lock
	l.mu.RLock()
	if e, ok := l.items[ref]; ok {
		l.mu.RUnlock()
		observability.Layout().OnTextureLoad(ctx, ref, true, e.err)
		return e.img, e.err
	}
	l.mu.RUnlock()

	img, err := l.load(ctx, ref)
	observability.Layout().OnTextureLoad(ctx, ref, false, err)
	if ctx.Err() != nil {
		return img, err
	}

	// Write lock with double-check
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.items[ref]; ok {
		return e.img, e.err
	}
	l.items[ref] = &entry{img: img, err: err}
	return img, err
}

// Preload loads every reference concurrently and returns the failures by
// reference.
func (l *Loader) Preload(ctx context.Context, refs []string) map[string]error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs = make(map[string]error)
	)
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			if _, err := l.Load(ctx, ref); err != nil {
				mu.Lock()
				errs[ref] = err
				mu.Unlock()
			}
		}(ref)
	}
	wg.Wait()
	return errs
}

// Image returns an already loaded image without loading.
func (l *Loader) Image(ref string) (*image.NRGBA, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.items[ref]
	if !ok || e.err != nil {
		return nil, false
	}
	return e.img, true
}

// Size reports the pixel size of ref, loading it if needed. ok is false
// when the texture cannot be loaded.
func (l *Loader) Size(ref string) (w, h int, ok bool) {
	img, err := l.Load(context.Background(), ref)
	if err != nil || img == nil {
		return 0, 0, false
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), true
}

// Forget drops ref from the in-memory cache.
func (l *Loader) Forget(ref string) {
	l.mu.Lock()
	delete(l.items, ref)
	l.mu.Unlock()
}

// Put registers an already decoded image under ref.
func (l *Loader) Put(ref string, img *image.NRGBA) {
	l.mu.Lock()
	l.items[ref] = &entry{img: img}
	l.mu.Unlock()
}

func (l *Loader) load(ctx context.Context, ref string) (*image.NRGBA, error) {
	loc, err := l.resolver.Resolve(ref)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTextureLoad, err, "resolve %s", ref)
	}
	var data []byte
	if isURL(loc) {
		data, err = l.fetch(ctx, ref, loc)
	} else {
		data, err = os.ReadFile(loc)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTextureLoad, err, "load %s", ref)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTextureLoad, err, "load %s", ref)
	}
	return img, nil
}

func (l *Loader) fetch(ctx context.Context, ref, url string) ([]byte, error) {
	key := l.keyer.TextureKey(ref)
	if data, hit, err := l.bytes.Get(ctx, key); err == nil && hit {
		return data, nil
	}

	var data []byte
	err := httputil.Retry(ctx, 3, 250*time.Millisecond, func() error {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		data, err = httputil.Do(ctx, l.client, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	_ = l.bytes.Set(ctx, key, data, l.ttl)
	return data, nil
}
