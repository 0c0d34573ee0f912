package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"catspot/internal/config"
	"catspot/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes for DB_SCHEMA_MODE.
const (
	// SchemaModeSQL applies the embedded migrations. It is the default.
	SchemaModeSQL = "sql"
	// SchemaModeAuto lets GORM derive the tables from the models, for
	// throwaway local databases only.
	SchemaModeAuto = "auto"
)

// SchemaMode resolves DB_SCHEMA_MODE for cfg.
func SchemaMode(cfg *config.Config) (string, error) {
	switch mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode {
	case "", SchemaModeSQL:
		return SchemaModeSQL, nil
	case SchemaModeAuto:
		if cfg.IsProduction() {
			return "", fmt.Errorf("DB_SCHEMA_MODE=auto is not allowed in %q", cfg.Env)
		}
		return SchemaModeAuto, nil
	default:
		return "", fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// ApplySchema brings db up to date using the configured mode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	mode, err := SchemaMode(cfg)
	if err != nil {
		return err
	}

	if mode == SchemaModeAuto {
		middleware.Logger.InfoContext(ctx, "running GORM AutoMigrate", slog.String("env", cfg.Env))
		return db.WithContext(ctx).AutoMigrate(PersistentModels()...)
	}

	migrations, err := Migrations()
	if err != nil {
		return err
	}
	applied, err := NewMigrator(db, migrations).Up(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "schema up to date", slog.Int("applied", applied))
	return nil
}
