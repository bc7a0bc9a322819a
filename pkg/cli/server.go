package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	urfave "github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
	serverPortDefault         = 8080

	flagPort = "port"
)

func newServerCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start local JSON API server",
		Flags: []urfave.Flag{
			&urfave.IntFlag{
				Name:  flagPort,
				Usage: "Port on which the server will listen",
				Value: serverPortDefault,
			},
			&urfave.StringFlag{
				Name:  flagData,
				Usage: "Path to the loan CSV (optional, defaults to config or a synthetic book)",
			},
		},
		Action: cmdStartServer,
	}
}

func cmdStartServer(ctx context.Context, cmd *urfave.Command) error {
	app := getConfig(cmd)
	cfg := *app.Config
	if p := cmd.String(flagData); p != "" {
		cfg.Data.Path = p
	}

	ds, err := cfg.Dataset(ctx)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	h := NewHandler(&cfg, ds)
	if cfg.Store.Record {
		s, err := app.Store()
		if err != nil {
			slog.Warn("run history disabled", "error", err)
		} else {
			h.store = s
		}
	}

	address := fmt.Sprintf("127.0.0.1:%d", cmd.Int(flagPort))
	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(h),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("error starting server", "error", err)
			stop()
		}
	}()

	slog.Info("server started", "address", "http://"+address, "records", ds.Len())
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	return nil
}

func makeRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	r.Use(logRequests)
	return r
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
