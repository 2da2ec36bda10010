package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/simulagent/pkg/simul/server"
)

var (
	serveAddr        string
	serveIdleTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over websocket",
	Long: `Serve the configured pipeline on /ws. Every websocket connection owns its own
pipeline state; /healthz answers "ok".

Examples:
  simulagent serve --addr :8080 --segment-k 4 --sentencepiece-model spm.model
  simulagent run -f tokens.txt --remote ws://localhost:8080/ws`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, newPipeline, err := pipelineFunc(cmd)
		if err != nil {
			return err
		}

		h := server.New(newPipeline, slog.Default())
		h.IdleTimeout = serveIdleTimeout
		if cfg.IdleTimeout > 0 && !cmd.Flags().Changed("idle-timeout") {
			h.IdleTimeout = cfg.IdleTimeout.Std()
		}
		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			slog.Info("listening", "addr", serveAddr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().DurationVar(&serveIdleTimeout, "idle-timeout", 5*time.Minute, "close connections idle for this long (0 disables)")
	rootCmd.AddCommand(serveCmd)
}
