package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/motorbook/internal/booking/domain"
	"github.com/smallbiznis/motorbook/internal/clock"
	"github.com/smallbiznis/motorbook/internal/config"
	documentdomain "github.com/smallbiznis/motorbook/internal/document/domain"
	"github.com/smallbiznis/motorbook/internal/document/format"
	"github.com/smallbiznis/motorbook/internal/observability/logger"
	"github.com/smallbiznis/motorbook/internal/observability/metrics"
	sequencedomain "github.com/smallbiznis/motorbook/internal/sequence/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Cfg          config.Config
	Clock        clock.Clock
	Numbering    *config.NumberingConfigHolder
	Sequences    sequencedomain.Service
	Documents    documentdomain.Service
	DocumentRepo documentdomain.Repository
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	location     *time.Location
	clock        clock.Clock
	numbering    *config.NumberingConfigHolder
	sequences    sequencedomain.Service
	documents    documentdomain.Service
	documentRepo documentdomain.Repository
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.System{}
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("booking.service"),
		location:     p.Cfg.Location(),
		clock:        c,
		numbering:    p.Numbering,
		sequences:    p.Sequences,
		documents:    p.Documents,
		documentRepo: p.DocumentRepo,
		metrics:      p.Metrics,
	}
}

// Confirm commits the booking reference, invoice and optional quote numbers,
// then stores every document in one transaction. Either every document exists
// afterwards or none does; numbers reserved by a failed confirmation stay consumed.
func (s *Service) Confirm(ctx context.Context, req domain.ConfirmRequest) (domain.Confirmation, error) {
	bookingID := strings.TrimSpace(req.BookingID)
	if bookingID == "" {
		return domain.Confirmation{}, domain.ErrInvalidBooking
	}

	year := clock.YearIn(s.clock, s.location)
	log := logger.WithContext(ctx, s.log).With(
		zap.String("booking_id", bookingID),
		zap.Int("year", year),
	)

	invoiceReq := documentdomain.IssueRequest{
		Type:             documentdomain.TypeInvoice,
		Year:             year,
		Status:           documentdomain.StatusIssued,
		BookingID:        &bookingID,
		TotalAmountPence: req.TotalAmountPence,
		VATAmountPence:   req.VATAmountPence,
		PaymentMethod:    req.PaymentMethod,
	}
	if err := invoiceReq.Validate(); err != nil {
		return domain.Confirmation{}, err
	}
	if err := s.ensureUnconfirmed(ctx, s.db, bookingID); err != nil {
		return domain.Confirmation{}, err
	}

	result, err := s.confirm(ctx, bookingID, year, req, invoiceReq)
	if err != nil {
		log.Error("booking confirmation failed", zap.Error(err))
		if errors.Is(err, domain.ErrAlreadyConfirmed) {
			return domain.Confirmation{}, err
		}
		return domain.Confirmation{}, fmt.Errorf("%w: %w", domain.ErrCouldNotFinalize, err)
	}

	s.metrics.RecordDocumentIssued(ctx, string(result.Invoice.Type))
	if result.Quote != nil {
		s.metrics.RecordDocumentIssued(ctx, string(result.Quote.Type))
	}
	log.Info("booking confirmed",
		zap.String("reference", result.Reference),
		zap.String("invoice_number", result.Invoice.Number),
	)
	return result, nil
}

func (s *Service) confirm(ctx context.Context, bookingID string, year int, req domain.ConfirmRequest, invoiceReq documentdomain.IssueRequest) (domain.Confirmation, error) {
	seq, err := s.sequences.AllocateNext(ctx, sequencedomain.KeyBookingReference, year)
	if err != nil {
		return domain.Confirmation{}, err
	}
	reference, err := format.FormatNumber(s.numbering.Get().Templates.BookingReference, year, seq)
	if err != nil {
		return domain.Confirmation{}, err
	}
	invoiceNumber, err := s.documents.Reserve(ctx, documentdomain.TypeInvoice, year)
	if err != nil {
		return domain.Confirmation{}, err
	}
	var quoteNumber string
	if req.IssueQuote {
		if quoteNumber, err = s.documents.Reserve(ctx, documentdomain.TypeQuote, year); err != nil {
			return domain.Confirmation{}, err
		}
	}

	payload := req.Payload
	payload.Booking.Reference = reference

	now := s.clock.Now().UTC()
	dueIn := req.DueIn
	if dueIn <= 0 {
		dueIn = domain.DefaultDueIn
	}
	dueAt := now.Add(dueIn)

	invoiceReq.Payload = payload
	invoiceReq.IssuedAt = &now
	invoiceReq.DueAt = &dueAt

	result := domain.Confirmation{
		BookingID: bookingID,
		Reference: reference,
		Year:      year,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureUnconfirmed(ctx, tx, bookingID); err != nil {
			return err
		}

		invoice, err := s.documents.InsertTx(ctx, tx, invoiceReq, invoiceNumber)
		if err != nil {
			return err
		}
		result.Invoice = invoice

		if !req.IssueQuote {
			return nil
		}
		quote, err := s.documents.InsertTx(ctx, tx, documentdomain.IssueRequest{
			Type:             documentdomain.TypeQuote,
			Year:             year,
			Status:           documentdomain.StatusDraft,
			BookingID:        &bookingID,
			Payload:          payload,
			TotalAmountPence: req.TotalAmountPence,
			VATAmountPence:   req.VATAmountPence,
		}, quoteNumber)
		if err != nil {
			return err
		}
		result.Quote = &quote
		return nil
	})
	if err != nil {
		return domain.Confirmation{}, err
	}
	return result, nil
}

func (s *Service) ensureUnconfirmed(ctx context.Context, conn *gorm.DB, bookingID string) error {
	existing, err := s.documentRepo.List(ctx, conn, documentdomain.Filter{
		Types:     []documentdomain.Type{documentdomain.TypeInvoice},
		BookingID: bookingID,
	}, nil, 1)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyConfirmed, existing[0].Number)
	}
	return nil
}
