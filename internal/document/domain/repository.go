package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/motorbook/pkg/db/pagination"
	"gorm.io/gorm"
)

// StatusChange holds the columns UpdateStatus writes. Nil timestamps are left untouched.
type StatusChange struct {
	Status        Status
	IssuedAt      *time.Time
	DueAt         *time.Time
	PaidAt        *time.Time
	PaymentMethod *string
	UpdatedAt     time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, doc *Document) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Document, error)
	// List returns up to limit rows ordered by created_at DESC, id DESC, strictly after the cursor when given.
	List(ctx context.Context, db *gorm.DB, filter Filter, after *pagination.Cursor, limit int) ([]Document, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, change StatusChange) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, filter Filter) (int64, error)
}
