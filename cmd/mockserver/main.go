// Command mockserver serves an in-memory stand-in for the form service so
// campaigns can be rehearsed locally.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/applyload/internal/config"
	"github.com/wesleyorama2/applyload/internal/mockapi"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mockserver",
		Short: "Serve a fake form service for local load campaigns",
		Example: `  mockserver --addr :8080 --pending-polls 3
  applyload run --base-url http://localhost:8080/api/v1`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         serve,
	}

	flags := cmd.Flags()
	flags.String("addr", ":8080", "Listen address")
	flags.String("prefix", "/api/v1", "Path prefix of the API")
	flags.Int("pending-polls", 2, "PROCESSING answers before an offer request resolves")
	flags.String("outcome", "", "Terminal status of every offer request (default random)")
	flags.Duration("latency", 0, "Delay added to every response")
	flags.Float64("fail-rate", 0, "Probability of a 500 on any authenticated request")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text, json")
	return cmd
}

func serve(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	addr, _ := flags.GetString("addr")
	prefix, _ := flags.GetString("prefix")
	pending, _ := flags.GetInt("pending-polls")
	outcome, _ := flags.GetString("outcome")
	latency, _ := flags.GetDuration("latency")
	failRate, _ := flags.GetFloat64("fail-rate")
	level, _ := flags.GetString("log-level")
	format, _ := flags.GetString("log-format")

	if failRate < 0 || failRate > 1 {
		return fmt.Errorf("fail-rate must be within [0, 1], got %g", failRate)
	}

	logger := config.Logger{Level: level, Format: format}.NewLogger(cmd.ErrOrStderr())

	api := mockapi.New(mockapi.Config{
		PendingPolls: pending,
		Outcome:      strings.ToUpper(outcome),
		Latency:      latency,
		FailRate:     failRate,
		Logger:       logger,
	})

	router := newRouter(api, prefix)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mock form service listening", slog.String("addr", addr), slog.String("prefix", prefix))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down", slog.Int("sessions", api.Sessions()))
	return srv.Shutdown(shutdownCtx)
}

// newRouter mounts api under prefix next to a health check.
func newRouter(api http.Handler, prefix string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	prefix = "/" + strings.Trim(prefix, "/")
	r.Mount(prefix, api)
	return r
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
