package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rxcost/rxcost/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	var (
		address   string
		port      string
		rateLimit float64
		burst     int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lookup API over HTTP",
		Long: `Start an HTTP server exposing the match, equivalents, and cost ranking
operations as JSON endpoints under /v1.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			svc, store, err := initEngine()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if v := viper.GetString("server.address"); v != "" {
				address = v
			}
			if v := viper.GetString("server.port"); v != "" {
				port = v
			}

			srv := server.New(server.Config{
				Address:   address,
				Port:      port,
				RateLimit: rateLimit,
				Burst:     burst,
			}, svc)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&address, "address", "127.0.0.1", "listen address")
	cmd.Flags().StringVar(&port, "port", "8080", "listen port")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", 20, "sustained requests/second per client (0 disables)")
	cmd.Flags().Int64Var(&burst, "burst", 40, "per-client burst capacity")

	return cmd
}
