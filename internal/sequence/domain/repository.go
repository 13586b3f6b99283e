package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Increment creates the row at 1 when absent, otherwise adds one, and returns the new counter.
	Increment(ctx context.Context, db *gorm.DB, key Key, year int, now time.Time) (int64, error)
	// Reset sets the counter to 0, creating the row when absent.
	Reset(ctx context.Context, db *gorm.DB, key Key, year int, now time.Time) error
	// EnsureRow creates a zero row when absent and leaves an existing row untouched.
	EnsureRow(ctx context.Context, db *gorm.DB, key Key, year int, now time.Time) error
	FindOne(ctx context.Context, db *gorm.DB, key Key, year int) (*Sequence, error)
	ListByYear(ctx context.Context, db *gorm.DB, year int) ([]Sequence, error)
}
