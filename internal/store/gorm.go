package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DraftRow is the postgres row for one draft.
type DraftRow struct {
	ID        string         `gorm:"primaryKey"`
	Version   int            `gorm:"not null"`
	State     datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (DraftRow) TableName() string { return "drafts" }

// PostgresStore implements Store on gorm with the postgres driver.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewGormStore(db)
}

// NewGormStore wraps an open gorm handle and migrates the drafts table.
func NewGormStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&DraftRow{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (Record, error) {
	var row DraftRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	d, err := decode(id, row.State)
	if err != nil {
		return Record{}, err
	}
	return Record{Draft: d, Version: row.Version, UpdatedAt: row.UpdatedAt}, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	blob, err := encode(rec.Draft)
	if err != nil {
		return err
	}
	row := DraftRow{ID: rec.Draft.ID, Version: rec.Version, State: datatypes.JSON(blob), UpdatedAt: rec.UpdatedAt}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "state", "updated_at"}),
	}).Create(&row).Error
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
