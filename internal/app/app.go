package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"go-form-editor/internal/config"
	"go-form-editor/internal/content"
	"go-form-editor/internal/cryptox"
	"go-form-editor/internal/database"
	"go-form-editor/internal/editentry"
	"go-form-editor/internal/event"
	"go-form-editor/internal/forms"
	"go-form-editor/internal/handler"
	"go-form-editor/internal/memstore"
	"go-form-editor/internal/middleware"
	"go-form-editor/internal/model"
	"go-form-editor/internal/repository"
	"go-form-editor/internal/router"
	"go-form-editor/internal/service"
	"go-form-editor/internal/storage"
)

// Store is everything the forms engine, the editor and the API need from the
// form and entry storage.
type Store interface {
	forms.Store
	editentry.EntryStore
	UpsertForm(ctx context.Context, form *model.Form) error
	ListForms(ctx context.Context) ([]model.FormChoice, error)
	ListNotes(ctx context.Context, entryID int64) ([]model.Note, error)
	Ping(ctx context.Context) error
}

type pgStore struct {
	*repository.FormRepository
	*repository.EntryRepository
	db *database.DB
}

func (s pgStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

type backend struct {
	store  Store
	users  service.UserStore
	tokens service.TokenStore
	db     *database.DB
}

type App struct {
	server       *http.Server
	handler      http.Handler
	logger       *slog.Logger
	workers      []func(ctx context.Context) error
	cleanupFuncs []func()
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{logger: logger}
	if b.db != nil {
		a.cleanupFuncs = append(a.cleanupFuncs, b.db.Close)
	}

	if err := a.wire(ctx, cfg, b); err != nil {
		a.cleanup()
		return nil, err
	}

	return a, nil
}

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("using the in-memory store, data is lost on restart")
		return &backend{store: memstore.New(), users: memstore.NewUsers(), tokens: memstore.NewTokens()}, nil
	}

	logger.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, database.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: "go-form-editor",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	logger.Info("database ready")

	return &backend{
		store: pgStore{
			FormRepository:  repository.NewFormRepository(pool),
			EntryRepository: repository.NewEntryRepository(pool),
			db:              db,
		},
		users:  repository.NewUserRepository(pool),
		tokens: repository.NewTokenRepository(pool),
		db:     db,
	}, nil
}

func (a *App) wire(ctx context.Context, cfg *config.Config, b *backend) error {
	logger := a.logger

	// The form store is a hard dependency of every page.
	if err := b.store.Ping(ctx); err != nil {
		return fmt.Errorf("form store unavailable: %w", err)
	}

	if cfg.FormsFile != "" {
		if err := seedForms(ctx, b.store, cfg.FormsFile); err != nil {
			return err
		}
		logger.Info("form definitions loaded", "file", cfg.FormsFile)
	}

	cipher, err := cryptox.NewSecretBox(cfg.AppSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize confirmation cipher: %w", err)
	}

	thumbnails, err := storage.NewThumbnailer(cfg.ThumbnailRoot, 0)
	if err != nil {
		return fmt.Errorf("failed to initialize thumbnails: %w", err)
	}
	uploads, err := storage.New(cfg.UploadRoot, storage.Options{
		BaseURL:     cfg.UploadBaseURL,
		MaxSize:     cfg.MaxUploadSize,
		AllowedMIME: cfg.AllowedMIMETypes,
		Thumbnails:  thumbnails,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize upload storage: %w", err)
	}

	ownership, err := editentry.ParseOwnershipMode(cfg.OwnershipMode)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(b.users, b.tokens, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	created, err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	switch {
	case err != nil:
		logger.Warn("no administrator could be created", "error", err)
	case created:
		logger.Info("administrator created", "username", cfg.AdminUsername)
	}

	bus := event.NewBus(logger)
	notifications := service.NewNotificationService(bus, logger)

	shortcodes := content.NewRegistry(logger)
	engine := forms.NewEngine(b.store, uploads, notifications, shortcodes, bus, logger)

	var policies []editentry.PolicyFilter
	if len(cfg.EditorRoles) > 0 {
		policies = append(policies, editentry.AllowRoles(cfg.EditorRoles...))
	}
	editor := editentry.New(b.store, b.store, engine, cipher, shortcodes, editentry.Options{
		Ownership:     ownership,
		PolicyFilters: policies,
		Events:        bus,
		Logger:        logger,
	})
	shortcodes.Register("gravityform", editor.FormShortcode)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	a.handler = router.New(cfg, logger, authMiddleware, router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Form:    handler.NewFormHandler(editor, engine, cfg.MaxUploadSize),
		Entry:   handler.NewEntryHandler(b.store, editor),
		Content: handler.NewContentHandler(shortcodes),
	}, b.store)

	a.workers = append(a.workers, func(ctx context.Context) error {
		notifications.Dispatch(ctx)
		return nil
	})
	if cleaner, ok := b.tokens.(*repository.TokenRepository); ok {
		a.workers = append(a.workers, func(ctx context.Context) error {
			cleanTokens(ctx, cleaner, logger)
			return nil
		})
	}

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           a.handler,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return nil
}

func seedForms(ctx context.Context, store Store, path string) error {
	definitions, err := forms.LoadDefinitions(path)
	if err != nil {
		return err
	}

	for i := range definitions {
		if err := store.UpsertForm(ctx, &definitions[i]); err != nil {
			return fmt.Errorf("seed form %d: %w", definitions[i].ID, err)
		}
	}
	return nil
}

func cleanTokens(ctx context.Context, tokens *repository.TokenRepository, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := tokens.CleanExpired(ctx)
			if err != nil {
				logger.Warn("refresh token cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("expired refresh tokens removed", "count", removed)
			}
		}
	}
}

// Handler exposes the routed HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves until SIGINT or SIGTERM, then shuts the server and the
// background workers down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)
	for _, worker := range a.workers {
		g.Go(func() error {
			return worker(gctx)
		})
	}

	g.Go(func() error {
		a.logger.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	a.logger.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}

// Close releases background workers and connections without serving.
func (a *App) Close() {
	a.cleanup()
}
