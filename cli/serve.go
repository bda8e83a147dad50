package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ai_content_agents/server"
	"ai_content_agents/validate"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := a.newAgent()
			if err != nil {
				return err
			}
			docs, err := a.openDocs()
			if err != nil {
				return err
			}
			defer docs.Close()

			srv, err := server.New(agent,
				server.WithDocs(docs),
				server.WithValidator(validate.NewValidator(a.cfg.Industries)),
				server.WithLogger(a.log),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return listen(ctx, a, &http.Server{
				Addr:              a.cfg.ServerAddr,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			})
		},
	}
	cmd.Flags().StringVar(&a.overrides.ServerAddr, "addr", "", "listen address (overrides server_addr)")
	return cmd
}

// listen serves until ctx is done, then drains open requests.
func listen(ctx context.Context, a *app, httpSrv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", httpSrv.Addr).Info("server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.log.Info("server stopped")
	return nil
}
