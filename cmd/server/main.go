package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/ti4-draft-backend/internal/config"
	"github.com/DoyleJ11/ti4-draft-backend/internal/httpapi"
	"github.com/DoyleJ11/ti4-draft-backend/internal/hub"
	"github.com/DoyleJ11/ti4-draft-backend/internal/logging"
	"github.com/DoyleJ11/ti4-draft-backend/internal/notify"
	"github.com/DoyleJ11/ti4-draft-backend/internal/session"
	"github.com/DoyleJ11/ti4-draft-backend/internal/store"
	"github.com/DoyleJ11/ti4-draft-backend/internal/ws"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		return store.NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres store")
		}
		return store.NewPostgresStore(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Driver)
	}
}

// buildNotifier always logs; webhook and pg_notify are added when configured.
// The returned close func releases the pg pool.
func buildNotifier(ctx context.Context, cfg *config.Config, log *zap.Logger) (notify.Notifier, func(), error) {
	n := notify.Multi{notify.NewLog(log.Named("notify"))}
	closeFn := func() {}

	if cfg.Notify.WebhookURL != "" {
		n = append(n, notify.NewWebhook(cfg.Notify.WebhookURL, nil))
	}
	if cfg.Notify.Postgres {
		if cfg.Store.DatabaseURL == "" {
			return nil, nil, errors.New("NOTIFY_PG requires DATABASE_URL")
		}
		pg, err := notify.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Notify.Channel)
		if err != nil {
			return nil, nil, err
		}
		n = append(n, pg)
		closeFn = pg.Close
	}
	return n, closeFn, nil
}

func run(cfg *config.Config, log *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting ti4 draft server",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.GetAddr()),
		zap.String("store", cfg.Store.Driver),
	)

	st, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	notifier, closeNotifier, err := buildNotifier(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	h := hub.NewHub(context.WithoutCancel(ctx), st, session.Options{
		Notifier:         notifier,
		Log:              log.Named("session"),
		InboxSize:        cfg.Session.InboxSize,
		PersistTimeout:   cfg.Session.PersistTimeout,
		PersistRetries:   cfg.Session.PersistRetries,
		PersistBaseDelay: cfg.Session.PersistBaseDelay,
		NotifyTimeout:    cfg.Session.NotifyTimeout,
	})

	gate := session.NewAdminGate(cfg.Admin.Secret)
	if cfg.Admin.Secret == "" {
		log.Warn("ADMIN_SECRET is empty, admin intents are disabled")
	}

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 && cfg.IsDevelopment() {
		origins = []string{"localhost:*", "127.0.0.1:*"}
	}
	srv := &http.Server{
		Addr: cfg.GetAddr(),
		Handler: httpapi.SetupRoutes(h, gate, ws.Options{
			Gate:           gate,
			Log:            log.Named("ws"),
			OriginPatterns: origins,
			ReadTimeout:    cfg.Server.WSReadTimeout,
			OutboxSize:     cfg.Session.OutboxSize,
		}, log.Named("http")),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		serr := srv.Shutdown(shutdownCtx)
		h.Shutdown()
		select {
		case <-h.Done():
		case <-shutdownCtx.Done():
			serr = multierr.Append(serr, shutdownCtx.Err())
		}
		return serr
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
