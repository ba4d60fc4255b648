package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/httpapi"
)

// shutdownTimeout bounds how long in-flight requests may run after a
// termination signal.
const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var listen, staticDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the item API over HTTP",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				a.settings.Listen = listen
			}
			if cmd.Flags().Changed("static-dir") {
				a.settings.StaticDir = staticDir
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", a.settings.Listen)
			if err != nil {
				return systemError(fmt.Errorf("listening on %s: %w", a.settings.Listen, err))
			}
			return a.serve(ctx, ln)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", defaultListen, "address to listen on")
	cmd.Flags().StringVar(&staticDir, "static-dir", defaultStaticDir, "directory of static files served for non-API paths")
	return cmd
}

// serve runs the HTTP server on ln until ctx is done, then drains
// in-flight requests and detaches the store.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	backend, err := a.openBackend()
	if err != nil {
		ln.Close()
		return err
	}
	defer backend.Detach()

	srv := &http.Server{
		Handler: httpapi.New(backend,
			httpapi.WithLogger(a.logger),
			httpapi.WithStaticDir(a.settings.StaticDir)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          slog.NewLogLogger(a.logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("serving", slog.String("addr", ln.Addr().String()),
			slog.String("database", a.settings.backendConfig().DatabasePath()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return systemError(fmt.Errorf("serving: %w", err))
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return systemError(fmt.Errorf("shutting down: %w", err))
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return systemError(fmt.Errorf("serving: %w", err))
	}

	stats := backend.Stats()
	a.logger.Info("stopped", slog.Uint64("retries", stats.Retries), slog.Uint64("give_ups", stats.GiveUps))
	return nil
}
