package app

import (
	"context"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/seoaudit/internal/database"
	"github.com/MarcoPoloResearchLab/seoaudit/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// BackendMemory names the in-process store.
	BackendMemory = "memory"
	// BackendRelational names the GORM-backed store.
	BackendRelational = "relational"

	defaultProbeTimeout = 5 * time.Second
)

// Config describes how the storage backend is chosen at startup.
type Config struct {
	DatabaseURL  string
	ProbeTimeout time.Duration
	Clock        func() time.Time
	Logger       *zap.Logger
}

// App holds the storage backend chosen for the lifetime of the process.
type App struct {
	Store   storage.Store
	Backend string
	Clock   func() time.Time
	Logger  *zap.Logger

	db *gorm.DB
}

// New selects the storage backend exactly once. A configured database that
// opens, answers a probe and accepts the seed data becomes the relational
// backend; every other outcome falls back to the seeded in-memory store.
func New(ctx context.Context, cfg Config) *App {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	application := &App{Clock: clock, Logger: logger}

	url := strings.TrimSpace(cfg.DatabaseURL)
	if url == "" {
		logger.Info("no database configured, using in-memory storage")
		application.useMemory()
		return application
	}

	store, db, err := openRelational(ctx, url, timeout, clock, logger)
	if err != nil {
		logger.Warn("database unavailable, falling back to in-memory storage", zap.Error(err))
		application.useMemory()
		return application
	}

	application.Store = store
	application.Backend = BackendRelational
	application.db = db
	logger.Info("using relational storage")
	return application
}

func (a *App) useMemory() {
	a.Store = storage.NewMemoryStore(storage.MemoryConfig{Clock: a.Clock})
	a.Backend = BackendMemory
}

// openRelational bounds connecting, migrating and probing by timeout so an
// unreachable host cannot stall startup.
func openRelational(ctx context.Context, url string, timeout time.Duration, clock func() time.Time, logger *zap.Logger) (*storage.GormStore, *gorm.DB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := database.Open(connectCtx, url, logger)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewGormStore(storage.GormConfig{Database: db, Clock: clock, Logger: logger})
	if err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}

	if err := store.Probe(connectCtx); err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}
	if err := store.Seed(ctx); err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}
	return store, db, nil
}

// Close releases the database connection when the relational backend is active.
func (a *App) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return database.Close(a.db)
}
