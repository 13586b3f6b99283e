package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/motorbook/internal/sequence/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, key domain.Key, year int, now time.Time) (int64, error) {
	if db.Dialector.Name() == "mysql" {
		return r.incrementMySQL(ctx, db, key, year, now)
	}

	var counter int64
	err := db.WithContext(ctx).Raw(
		`INSERT INTO sequences (seq_key, year, counter, updated_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT (seq_key, year)
		 DO UPDATE SET counter = sequences.counter + 1, updated_at = excluded.updated_at
		 RETURNING counter`,
		key,
		year,
		now,
	).Scan(&counter).Error
	if err != nil {
		return 0, err
	}
	return counter, nil
}

// MySQL has no RETURNING; LAST_INSERT_ID(expr) is connection scoped, so both
// statements run on the transaction's connection.
func (r *repo) incrementMySQL(ctx context.Context, db *gorm.DB, key domain.Key, year int, now time.Time) (int64, error) {
	var counter int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO sequences (seq_key, year, counter, updated_at)
			 VALUES (?, ?, LAST_INSERT_ID(1), ?)
			 ON DUPLICATE KEY UPDATE counter = LAST_INSERT_ID(counter + 1), updated_at = VALUES(updated_at)`,
			key,
			year,
			now,
		).Error; err != nil {
			return err
		}
		return tx.Raw(`SELECT LAST_INSERT_ID()`).Scan(&counter).Error
	})
	if err != nil {
		return 0, err
	}
	return counter, nil
}

func (r *repo) Reset(ctx context.Context, db *gorm.DB, key domain.Key, year int, now time.Time) error {
	row := domain.Sequence{Key: key, Year: year, Counter: 0, UpdatedAt: now}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "seq_key"}, {Name: "year"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"counter":    0,
				"updated_at": now,
			}),
		}).
		Create(&row).Error
}

func (r *repo) EnsureRow(ctx context.Context, db *gorm.DB, key domain.Key, year int, now time.Time) error {
	row := domain.Sequence{Key: key, Year: year, Counter: 0, UpdatedAt: now}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "seq_key"}, {Name: "year"}},
			DoNothing: true,
		}).
		Create(&row).Error
}

func (r *repo) FindOne(ctx context.Context, db *gorm.DB, key domain.Key, year int) (*domain.Sequence, error) {
	var row domain.Sequence
	err := db.WithContext(ctx).
		Where("seq_key = ? AND year = ?", key, year).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repo) ListByYear(ctx context.Context, db *gorm.DB, year int) ([]domain.Sequence, error) {
	var rows []domain.Sequence
	err := db.WithContext(ctx).
		Where("year = ?", year).
		Order("seq_key asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
