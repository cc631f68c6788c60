package web

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	"ffdc.sales_insights/handlers"
	"ffdc.sales_insights/pkg/config"
	"ffdc.sales_insights/pkg/database"
	"ffdc.sales_insights/pkg/qa"
	"ffdc.sales_insights/pkg/typewriter"
)

// Deps are the long lived objects the routes share. Writer may be nil, in
// which case CSV upload is not mounted.
type Deps struct {
	Service *qa.Service
	Store   *database.Store
	Writer  *sql.DB
	Logger  *zap.Logger
}

func StartServer(ctx context.Context, cfg *config.Config, deps Deps) error {
	server := createServer(cfg, deps)

	l, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}
	if cfg.Server.MaxConnections > 0 {
		l = netutil.LimitListener(l, cfg.Server.MaxConnections)
	}
	return runServer(ctx, server, l, cfg.Server.ShutdownTimeout, deps.Logger)
}

func createServer(cfg *config.Config, deps Deps) *http.Server {
	logger := deps.Logger
	mux := http.NewServeMux()

	var limiter *rate.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), max(cfg.Server.RateBurst, 1))
	}

	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		loaded, err := deps.Store.IsDBPopulated(r.Context(), deps.Service.Tables())
		if err != nil {
			logger.Warn("database status check failed", zap.Error(err))
		}
		IndexPage(w, IndexData{
			DBLoaded:    loaded,
			Tables:      deps.Service.Tables(),
			Endpoint:    "/ask",
			TypeDelayMS: cfg.Widget.TypeDelay.Milliseconds(),
		})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.DB().PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	mux.Handle("/ask", handlers.RateLimit(limiter, handlers.AskHandler(deps.Service, logger)))
	mux.Handle("/api/ws", handlers.RateLimit(limiter, handlers.WSHandler(deps.Service, typewriter.New(cfg.Widget.TypeDelay), logger)))
	mux.Handle("/api/chart", handlers.ChartHandler(logger))
	if deps.Writer != nil {
		mux.Handle("/api/upload", handlers.ProcessCSVHandler(deps.Writer, cfg.Server.UploadDir, logger))
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handlers.RequestLogger(logger, handlers.CORS(cfg.Server.AllowedOrigins, mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server
}

func runServer(
	ctx context.Context,
	server *http.Server,
	l net.Listener,
	shutdownTimeOut time.Duration,
	logger *zap.Logger,
) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running", zap.String("addr", l.Addr().String()))
		if err := server.Serve(l); !errors.Is(
			err, http.ErrServerClosed,
		) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case <-stop:
		logger.Info("received server shutdown signal")
	case <-ctx.Done():
		logger.Info("context done, shutting down server")
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeOut,
	)
	defer cancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		if closeErr := server.Close(); closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}
