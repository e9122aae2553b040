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

	"github.com/NYTimes/gziphandler"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"

	"github.com/stephansmit/pvpumpingsystem/internal/api"
	"github.com/stephansmit/pvpumpingsystem/internal/data"
	"github.com/stephansmit/pvpumpingsystem/internal/log"
)

func main() {
	// .env is optional; it only seeds the environment
	_ = godotenv.Load()

	// get the port from PORT when running in a container
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	dataDir := lflag.String("data-dir", data.DefaultDataDir(), "Directory with pumps/, modules/ and weather/ sub-directories")
	staticDir := lflag.String("static-dir", "./web/dist", "Directory of a built web client to serve (skipped when missing)")
	corsOrigins := lflag.String("cors-origins", "", "Comma-delimited list of allowed browser origins (empty allows any)")
	cacheTTL := lflag.Duration("cache-ttl", 30*time.Minute, "How long parsed input files and run ledgers are kept. 0 disables caching.")
	release := lflag.Bool("release", false, "Run gin in release mode")

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag sets llog's level; mirror it on the slog logger
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}
	log.SetDefaultLogLevel(level)
	slog.SetDefault(log.Default())

	if *release {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := api.NewRouter(api.Options{
		DataDir:     *dataDir,
		StaticDir:   *staticDir,
		CORSOrigins: splitList(*corsOrigins),
		CacheTTL:    *cacheTTL,
	})
	if *cacheTTL > 0 {
		go srv.Janitor(ctx, *cacheTTL)
	}

	log.Ctx(ctx).Info("data directory", slog.String("dir", *dataDir))
	if err := run(ctx, *listenAddr, gziphandler.GzipHandler(srv.Router)); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}

// run serves until ctx is canceled, then shuts down gracefully.
func run(ctx context.Context, addr string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  15 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
