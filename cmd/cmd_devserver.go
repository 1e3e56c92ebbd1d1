package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nourish/controllers"
	"nourish/routes"
)

func devserverCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory backend for local development",
		Long: `Serves the full backend API under /api from an in-memory database seeded
with a small food catalog. Nothing is persisted. Point the client at it
with NOURISH_API_URL=http://localhost:5001/api (the development default).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.DevAddr
			}
			secret := c.cfg.JWTSecret
			if secret == "" {
				secret = uuid.NewString()
				c.log.Warn("no jwt secret configured, tokens will not survive a restart")
			}

			db, err := controllers.OpenMemoryDB()
			if err != nil {
				return fmt.Errorf("dev backend: open db: %w", err)
			}
			backend, err := controllers.NewServer(db, []byte(secret), c.log)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           routes.SetupRouter(backend, c.log),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			fmt.Fprintf(c.out, "dev backend listening on %s\n", addr)

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}
			c.log.Info("shutting down dev backend")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				c.log.Warn("dev backend shutdown", zap.Error(err))
			}
			if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to dev_addr from the config)")
	return cmd
}
