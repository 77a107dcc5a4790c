package store

import (
	"context"
	"errors"
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// collectionRow holds one collection document per row. The version column
// increments on every write and backs the VersionedStore extension.
type collectionRow struct {
	Name    string `gorm:"column:name;primaryKey;size:190;not null"`
	Version int64  `gorm:"column:version;not null;default:0"`
	Body    string `gorm:"column:body;type:text;not null"`
}

func (collectionRow) TableName() string {
	return "collections"
}

// SQLiteStore persists collections in a local SQLite database. Unlike the
// file and blob backends it implements VersionedStore, so callers that need
// lost-update protection can opt into conditional writes.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the database at path and migrates the
// collections table.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store: database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&collectionRow{}); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("collection database initialized", zap.String("path", path))
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, collection string, out any) error {
	_, err := s.LoadVersioned(ctx, collection, out)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, collection string, records any) error {
	data, err := encodeCollection(records)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", collection, err)
	}

	row := collectionRow{Name: collection, Version: 1, Body: string(data)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"body":    string(data),
			"version": gorm.Expr("collections.version + 1"),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("store: write %s: %w", collection, err)
	}
	return nil
}

// LoadVersioned reads a collection along with its current version. A
// collection that has never been written reads as empty at version zero.
func (s *SQLiteStore) LoadVersioned(ctx context.Context, collection string, out any) (int64, error) {
	var row collectionRow
	err := s.db.WithContext(ctx).Where("name = ?", collection).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: read %s: %w", collection, err)
	}
	decodeCollection([]byte(row.Body), out)
	return row.Version, nil
}

// SaveVersioned replaces the collection only when its stored version still
// matches expectedVersion, returning ErrVersionConflict otherwise.
func (s *SQLiteStore) SaveVersioned(ctx context.Context, collection string, records any, expectedVersion int64) error {
	data, err := encodeCollection(records)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", collection, err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row collectionRow
		err := tx.Where("name = ?", collection).Take(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if expectedVersion != 0 {
				return ErrVersionConflict
			}
			return tx.Create(&collectionRow{Name: collection, Version: 1, Body: string(data)}).Error
		case err != nil:
			return fmt.Errorf("store: read %s: %w", collection, err)
		case row.Version != expectedVersion:
			return ErrVersionConflict
		default:
			return tx.Model(&collectionRow{}).
				Where("name = ? AND version = ?", collection, expectedVersion).
				Updates(map[string]any{"body": string(data), "version": expectedVersion + 1}).Error
		}
	})
}
