package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tryon/pkg/api"
	"github.com/matzehuels/tryon/pkg/cache"
	"github.com/matzehuels/tryon/pkg/fitstore/redisstore"
	"github.com/matzehuels/tryon/pkg/pipeline"
)

const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noAuth bool
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve fits and previews over HTTP",
		Long: `Serve the try-on HTTP API.

Requests identify the user with the X-User-ID header. With --no-auth every
request acts as the "local" user. The redis backend also caches rendered
previews in redis; other backends use the local cache directory.`,
		Example: `  tryon serve --addr :9000
  tryon serve --config prod.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("no-auth") {
				cfg.Server.NoAuth = noAuth
			}

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			poses, err := cfg.PoseRegistry()
			if err != nil {
				return err
			}
			var runner *pipeline.Runner
			if rs, ok := store.(*redisstore.Store); ok && !noCache {
				rc := cache.NewRedisCache(rs.Client(), cfg.Store.Prefix+"cache:")
				runner = pipeline.NewRunner(rc, assetKeyer(cfg), logger)
				runner.Poses = poses
				runner.Textures = newTextureLoader(cfg, rc)
			} else if runner, err = c.newRunner(cfg, noCache); err != nil {
				return err
			}
			defer runner.Close()

			srv, err := api.New(api.Config{
				Store:   store,
				Runner:  runner,
				Poses:   poses,
				Logger:  logger,
				FitPose: cfg.Poses.Canonical,
				NoAuth:  cfg.Server.NoAuth,
				Timeout: cfg.Server.Timeout.Duration,
			})
			if err != nil {
				return err
			}
			return serve(ctx, cfg.Server.Addr, srv, c)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noAuth, "no-auth", false, "treat every request as the local user")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the texture and preview cache")
	return cmd
}

// serve runs h on addr until ctx is cancelled, then shuts down gracefully.
func serve(ctx context.Context, addr string, h http.Handler, c *CLI) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- hs.ListenAndServe()
	}()
	c.Logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
