// Package storage opens the configured persistence gateway.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/NordCoder/Uptimer/internal/domain/record"
	"github.com/NordCoder/Uptimer/internal/repository/file"
	"github.com/NordCoder/Uptimer/internal/repository/memory"
	"github.com/NordCoder/Uptimer/internal/repository/postgres"
	"github.com/NordCoder/Uptimer/internal/repository/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverFile     = "file"
	DriverMemory   = "memory"
)

type Config struct {
	Driver      string          `mapstructure:"driver"`
	Postgres    postgres.Config `mapstructure:"postgres"`
	SQLitePath  string          `mapstructure:"sqlite_path"`
	FileDir     string          `mapstructure:"file_dir"`
	AutoMigrate bool            `mapstructure:"auto_migrate"`
}

// Storage is an open gateway plus the handles that outlive it.
type Storage struct {
	Driver  string
	Gateway record.Gateway
	// PG is set only for the postgres driver; the outbox needs it.
	PG *postgres.DB

	ping  func(ctx context.Context) error
	close func()
}

func (s *Storage) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Storage, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	log = log.With(zap.String("component", "storage"), zap.String("driver", driver))

	switch driver {
	case DriverPostgres:
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, cfg.Postgres.DSN); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("migrations applied")
		}
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return &Storage{Driver: driver, Gateway: postgres.NewGateway(db), PG: db, ping: db.Ping, close: db.Close}, nil

	case DriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = "uptimer.db"
		}
		db, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite opened", zap.String("path", path))
		return &Storage{Driver: driver, Gateway: sqlite.NewGateway(db), ping: db.PingContext, close: closer(db, log)}, nil

	case DriverFile:
		dir := cfg.FileDir
		if dir == "" {
			dir = filepath.Join(".", ".data")
		}
		g, err := file.NewGateway(dir)
		if err != nil {
			return nil, err
		}
		log.Info("file storage", zap.String("dir", dir))
		return &Storage{Driver: driver, Gateway: g}, nil

	case DriverMemory, "":
		log.Warn("in-memory storage; data is lost on exit")
		return &Storage{Driver: DriverMemory, Gateway: memory.NewGateway()}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func closer(db *sql.DB, log *zap.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Warn("close database", zap.Error(err))
		}
	}
}
