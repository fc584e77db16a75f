package cli

import (
	"context"
	"fmt"

	"github.com/matzehuels/tryon/internal/config"
	"github.com/matzehuels/tryon/pkg/fitstore"
	"github.com/matzehuels/tryon/pkg/fitstore/mongostore"
	"github.com/matzehuels/tryon/pkg/fitstore/redisstore"
	"github.com/matzehuels/tryon/pkg/fitstore/remote"
)

// openStore opens the configured record backend. The remote backend has
// no record store; use openAdapter for it.
func openStore(ctx context.Context, cfg *config.Config) (fitstore.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return fitstore.NewMemory(), nil
	case config.BackendFile:
		return fitstore.NewFile(cfg.Store.Dir)
	case config.BackendRedis:
		return redisstore.Dial(ctx, cfg.Store.URL, cfg.Store.Prefix)
	case config.BackendMongo:
		s, err := mongostore.Connect(ctx, cfg.Store.URL, cfg.Store.Database)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case config.BackendRemote:
		return nil, fmt.Errorf("store backend %q serves fits over HTTP only", cfg.Store.Backend)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// openAdapter returns the fit adapter for the configured user. The
// returned close function releases the backend.
func openAdapter(ctx context.Context, cfg *config.Config) (fitstore.Adapter, func(), error) {
	if cfg.Store.Backend == config.BackendRemote {
		c, err := remote.New(cfg.Store.URL, cfg.Store.User)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return fitstore.ForUser(s, cfg.Store.User), func() { s.Close() }, nil
}
