package domain

import (
	"context"
	"errors"
	"iter"
	"time"

	sequencedomain "github.com/smallbiznis/motorbook/internal/sequence/domain"
	"github.com/smallbiznis/motorbook/pkg/db/pagination"
	"gorm.io/gorm"
)

type IssueRequest struct {
	Type Type
	// Year selects the counter; callers decide it, usually from the current date in the business timezone.
	Year             int
	Status           Status
	BookingID        *string
	Payload          Payload
	TotalAmountPence int64
	VATAmountPence   int64
	IssuedAt         *time.Time
	DueAt            *time.Time
	PaymentMethod    *string
}

func (r IssueRequest) Validate() error {
	if !r.Type.Valid() {
		return ErrInvalidType
	}
	if r.Status != "" && !r.Status.Valid() {
		return ErrInvalidStatus
	}
	if r.TotalAmountPence < 0 || r.VATAmountPence < 0 || r.VATAmountPence > r.TotalAmountPence {
		return ErrInvalidAmount
	}
	if !sequencedomain.ValidYear(r.Year) {
		return sequencedomain.ErrInvalidYear
	}
	return nil
}

type ListRequest struct {
	Filter    Filter
	PageToken string
	PageSize  int
}

type ListResponse struct {
	pagination.PageInfo
	Documents []Document `json:"documents"`
}

type UpdateStatusRequest struct {
	Status        Status
	IssuedAt      *time.Time
	DueAt         *time.Time
	PaidAt        *time.Time
	PaymentMethod *string
}

type Service interface {
	Issue(ctx context.Context, req IssueRequest) (Document, error)
	// IssueTx allocates and inserts inside the caller's transaction without
	// retrying; a rollback by the caller also returns the number.
	IssueTx(ctx context.Context, tx *gorm.DB, req IssueRequest) (Document, error)
	// Reserve commits the next number for the type and year. The number stays
	// consumed whether or not a document is ever stored under it.
	Reserve(ctx context.Context, docType Type, year int) (string, error)
	// InsertTx stores a document under a number obtained from Reserve.
	InsertTx(ctx context.Context, tx *gorm.DB, req IssueRequest, number string) (Document, error)
	Query(ctx context.Context, filter Filter, pageSize int) iter.Seq2[Document, error]
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	GetByID(ctx context.Context, id string) (Document, error)
	UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (Document, error)
	Delete(ctx context.Context, filter Filter) (int64, error)
	Export(ctx context.Context, filter Filter) ([]byte, error)
}

var (
	ErrDuplicateNumber  = errors.New("duplicate_number")
	ErrNotFound         = errors.New("not_found")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidType      = errors.New("invalid_type")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidDateRange = errors.New("invalid_date_range")
	ErrEmptyFilter      = errors.New("empty_filter")
)
