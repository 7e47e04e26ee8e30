package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/remote/remotetest"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr  string
		token string
		seeds []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an in-memory flow persistence API for local development",
		Long: `serve answers GET and PUT /flows/{graphId} from memory. Flows are lost
when the server stops. Use --seed id=file.json to preload documents.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h := remotetest.NewHandler()
			if token != "" {
				h.RequireToken(token)
			}
			for _, seed := range seeds {
				id, path, ok := strings.Cut(seed, "=")
				if !ok || id == "" || path == "" {
					return fmt.Errorf("invalid --seed %q, want id=file", seed)
				}
				doc, err := readDocument(path, cmd.InOrStdin())
				if err != nil {
					return err
				}
				h.Put(id, doc)
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "%s serving flows on http://%s\n", okIcon(true), ln.Addr())
			return serve(ctx, ln, h)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&token, "token", "", "require this bearer token")
	cmd.Flags().StringArrayVar(&seeds, "seed", nil, "preload a flow, as id=file.json (repeatable)")
	return cmd
}

// serve runs h on ln until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
