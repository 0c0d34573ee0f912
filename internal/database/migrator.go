package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"catspot/internal/middleware"

	"gorm.io/gorm"
)

var (
	// ErrUnknownVersion means the database carries a migration this build
	// does not ship, usually because it was migrated by a newer release.
	ErrUnknownVersion = errors.New("database has migrations this build does not know")
	// ErrSchemaDrift means an applied migration file was edited afterwards.
	ErrSchemaDrift     = errors.New("applied migrations differ from the embedded files")
	ErrNothingToRevert = errors.New("no applied migrations")
)

// SchemaVersion is the bookkeeping row for one applied migration.
type SchemaVersion struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (SchemaVersion) TableName() string { return "schema_versions" }

// SchemaStatus compares the database with the embedded migrations.
type SchemaStatus struct {
	Applied []SchemaVersion
	Pending []Migration
	Drifted []Migration
	Unknown []int
}

// Migrator applies and reverts embedded migrations, one transaction each.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

func NewMigrator(db *gorm.DB, migrations []Migration) *Migrator {
	return &Migrator{db: db, migrations: migrations}
}

// Status reports applied, pending, edited and unknown versions. It does not
// create the bookkeeping table.
func (m *Migrator) Status(ctx context.Context) (*SchemaStatus, error) {
	db := m.db.WithContext(ctx)
	st := &SchemaStatus{}
	if db.Migrator().HasTable(&SchemaVersion{}) {
		if err := db.Order("version").Find(&st.Applied).Error; err != nil {
			return nil, fmt.Errorf("read schema versions: %w", err)
		}
	}

	applied := make(map[int]SchemaVersion, len(st.Applied))
	for _, v := range st.Applied {
		applied[v.Version] = v
	}
	known := make(map[int]bool, len(m.migrations))
	for _, mig := range m.migrations {
		known[mig.Version] = true
		v, ok := applied[mig.Version]
		switch {
		case !ok:
			st.Pending = append(st.Pending, mig)
		case v.Checksum != mig.Checksum:
			st.Drifted = append(st.Drifted, mig)
		}
	}
	for _, v := range st.Applied {
		if !known[v.Version] {
			st.Unknown = append(st.Unknown, v.Version)
		}
	}
	return st, nil
}

// Up applies every pending migration in version order and returns how many
// ran. It refuses to touch a database with drifted or unknown versions.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&SchemaVersion{}); err != nil {
		return 0, fmt.Errorf("create schema_versions: %w", err)
	}
	st, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}
	if len(st.Unknown) > 0 {
		return 0, fmt.Errorf("%w: %v", ErrUnknownVersion, st.Unknown)
	}
	if len(st.Drifted) > 0 {
		return 0, fmt.Errorf("%w: %s", ErrSchemaDrift, names(st.Drifted))
	}

	for i, mig := range st.Pending {
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.Up).Error; err != nil {
				return err
			}
			return tx.Create(&SchemaVersion{Version: mig.Version, Name: mig.Name, Checksum: mig.Checksum}).Error
		})
		if err != nil {
			return i, fmt.Errorf("apply %s: %w", mig, err)
		}
		middleware.Logger.InfoContext(ctx, "migration applied", slog.String("migration", mig.String()))
	}
	return len(st.Pending), nil
}

// Down reverts the newest applied migration.
func (m *Migrator) Down(ctx context.Context) (Migration, error) {
	st, err := m.Status(ctx)
	if err != nil {
		return Migration{}, err
	}
	if len(st.Applied) == 0 {
		return Migration{}, ErrNothingToRevert
	}
	newest := st.Applied[len(st.Applied)-1]

	var mig Migration
	found := false
	for _, candidate := range m.migrations {
		if candidate.Version == newest.Version {
			mig, found = candidate, true
			break
		}
	}
	if !found {
		return Migration{}, fmt.Errorf("%w: %d", ErrUnknownVersion, newest.Version)
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.Down).Error; err != nil {
			return err
		}
		return tx.Delete(&SchemaVersion{}, "version = ?", mig.Version).Error
	})
	if err != nil {
		return Migration{}, fmt.Errorf("revert %s: %w", mig, err)
	}
	middleware.Logger.InfoContext(ctx, "migration reverted", slog.String("migration", mig.String()))
	return mig, nil
}

func names(ms []Migration) string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.String()
	}
	return strings.Join(out, ", ")
}
