package persist

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// withGoose points goose at the embedded match history migrations and runs
// fn on a database/sql view of the pool.
func (db *DB) withGoose(fn func(*sql.DB) error) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()
	return fn(sqlDB)
}

// Migrate applies all pending migrations and returns the resulting schema
// version.
func (db *DB) Migrate(ctx context.Context) (int64, error) {
	var version int64
	err := db.withGoose(func(sqlDB *sql.DB) error {
		if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		v, err := goose.GetDBVersionContext(ctx, sqlDB)
		if err != nil {
			return fmt.Errorf("schema version: %w", err)
		}
		version = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	db.log.Info("match history schema ready", zap.Int64("version", version))
	return version, nil
}
