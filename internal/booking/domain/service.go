package domain

import (
	"context"
	"errors"
	"time"

	documentdomain "github.com/smallbiznis/motorbook/internal/document/domain"
)

type ConfirmRequest struct {
	BookingID        string
	Payload          documentdomain.Payload
	TotalAmountPence int64
	VATAmountPence   int64
	// DueIn is added to the confirmation time for the invoice due date. Zero uses DefaultDueIn.
	DueIn         time.Duration
	PaymentMethod *string
	IssueQuote    bool
}

type Confirmation struct {
	BookingID string                   `json:"booking_id"`
	Reference string                   `json:"reference"`
	Year      int                      `json:"year"`
	Invoice   documentdomain.Document  `json:"invoice"`
	Quote     *documentdomain.Document `json:"quote,omitempty"`
}

type Service interface {
	Confirm(ctx context.Context, req ConfirmRequest) (Confirmation, error)
}

const DefaultDueIn = 14 * 24 * time.Hour

var (
	ErrInvalidBooking   = errors.New("invalid_booking")
	ErrAlreadyConfirmed = errors.New("booking_already_confirmed")
	ErrCouldNotFinalize = errors.New("could not finalize documents")
)
