package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Service interface {
	AllocateNext(ctx context.Context, key Key, year int) (int64, error)
	// AllocateNextTx makes a single attempt inside the caller's transaction.
	// Callers own retries, because a failed statement poisons the transaction on postgres.
	AllocateNextTx(ctx context.Context, tx *gorm.DB, key Key, year int) (int64, error)
	ResetCounter(ctx context.Context, key Key, year int) error
	PeekCounter(ctx context.Context, key Key, year int) (int64, error)
	List(ctx context.Context, year int) ([]Sequence, error)
	Ensure(ctx context.Context, year int) error
}

var (
	ErrAllocationConflict = errors.New("allocation_conflict")
	ErrAllocationFailed   = errors.New("allocation_failed")
	ErrInvalidKey         = errors.New("invalid_sequence_key")
	ErrInvalidYear        = errors.New("invalid_year")
)
