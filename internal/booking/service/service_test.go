package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/motorbook/internal/booking/domain"
	"github.com/smallbiznis/motorbook/internal/clock"
	"github.com/smallbiznis/motorbook/internal/config"
	documentdomain "github.com/smallbiznis/motorbook/internal/document/domain"
	documentrepository "github.com/smallbiznis/motorbook/internal/document/repository"
	documentservice "github.com/smallbiznis/motorbook/internal/document/service"
	sequencedomain "github.com/smallbiznis/motorbook/internal/sequence/domain"
	sequencerepository "github.com/smallbiznis/motorbook/internal/sequence/repository"
	sequenceservice "github.com/smallbiznis/motorbook/internal/sequence/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	clock     *clock.FakeClock
	sequences sequencedomain.Service
	documents documentdomain.Service
	svc       domain.Service
}

// 2025-12-31 12:00 UTC is already New Year's Day in Auckland.
var newYearInAuckland = time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&sequencedomain.Sequence{}, &documentdomain.Document{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(newYearInAuckland)
	numbering := config.NewStaticNumberingConfigHolder(config.NumberingConfig{
		Retry: config.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
	})
	log := zap.NewNop()

	sequences := sequenceservice.New(sequenceservice.Params{
		DB:        db,
		Log:       log,
		Repo:      sequencerepository.Provide(),
		Clock:     fake,
		Numbering: numbering,
	})
	docRepo := documentrepository.Provide()
	documents := documentservice.New(documentservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Repo:      docRepo,
		Sequences: sequences,
		Clock:     fake,
		Numbering: numbering,
	})

	svc := New(Params{
		DB:           db,
		Log:          log,
		Cfg:          config.Config{Timezone: "Pacific/Auckland"},
		Clock:        fake,
		Numbering:    numbering,
		Sequences:    sequences,
		Documents:    documents,
		DocumentRepo: docRepo,
	})

	return &fixture{db: db, clock: fake, sequences: sequences, documents: documents, svc: svc}
}

func confirmRequest(bookingID string) domain.ConfirmRequest {
	return domain.ConfirmRequest{
		BookingID: bookingID,
		Payload: documentdomain.Payload{
			Customer: documentdomain.Customer{Name: "Sam Smith", Email: "sam@example.com"},
			Vehicle:  documentdomain.Vehicle{Registration: "SM17 HYE"},
			Booking:  documentdomain.BookingSnapshot{ServiceName: "Full service"},
		},
		TotalAmountPence: 18000,
		VATAmountPence:   3000,
	}
}

func TestConfirmIssuesReferenceInvoiceAndQuote(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req := confirmRequest("bkg_100")
	req.IssueQuote = true

	got, err := f.svc.Confirm(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 2026, got.Year)
	assert.Equal(t, "BKG-26000001", got.Reference)

	assert.Equal(t, "INV-2026-00001", got.Invoice.Number)
	assert.Equal(t, documentdomain.StatusIssued, got.Invoice.Status)
	require.NotNil(t, got.Invoice.IssuedAt)
	require.NotNil(t, got.Invoice.DueAt)
	assert.Equal(t, domain.DefaultDueIn, got.Invoice.DueAt.Sub(*got.Invoice.IssuedAt))
	require.NotNil(t, got.Invoice.BookingID)
	assert.Equal(t, "bkg_100", *got.Invoice.BookingID)

	require.NotNil(t, got.Quote)
	assert.Equal(t, "QUO-2026-00001", got.Quote.Number)
	assert.Equal(t, documentdomain.StatusDraft, got.Quote.Status)

	stored, err := f.documents.GetByID(ctx, got.Invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "BKG-26000001", stored.Payload.Data().Booking.Reference)
	assert.Equal(t, "Full service", stored.Payload.Data().Booking.ServiceName)
}

func TestConfirmWithoutQuote(t *testing.T) {
	f := setup(t)

	got, err := f.svc.Confirm(context.Background(), confirmRequest("bkg_1"))
	require.NoError(t, err)
	assert.Nil(t, got.Quote)

	quotes, err := f.sequences.PeekCounter(context.Background(), sequencedomain.KeyQuote, 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(0), quotes)
}

func TestConfirmRejectsSecondConfirmation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Confirm(ctx, confirmRequest("bkg_7"))
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, confirmRequest("bkg_7"))
	assert.ErrorIs(t, err, domain.ErrAlreadyConfirmed)

	refs, err := f.sequences.PeekCounter(ctx, sequencedomain.KeyBookingReference, 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(1), refs)
}

func TestConfirmRequiresBookingID(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Confirm(context.Background(), confirmRequest("  "))
	assert.ErrorIs(t, err, domain.ErrInvalidBooking)
}

func TestConfirmFailureLeavesNoPartialDocuments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// The quote number the confirmation will mint is already taken.
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&documentdomain.Document{
		ID:        snowflake.ID(42),
		Number:    "QUO-2026-00001",
		Type:      documentdomain.TypeQuote,
		Status:    documentdomain.StatusDraft,
		Year:      2026,
		Payload:   datatypes.NewJSONType(documentdomain.Payload{}),
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)

	req := confirmRequest("bkg_9")
	req.IssueQuote = true
	_, err := f.svc.Confirm(ctx, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCouldNotFinalize)
	assert.ErrorIs(t, err, documentdomain.ErrDuplicateNumber)
	assert.Equal(t, "could not finalize documents", domain.ErrCouldNotFinalize.Error())

	for doc, err := range f.documents.Query(ctx, documentdomain.Filter{BookingID: "bkg_9"}, 10) {
		require.NoError(t, err)
		t.Fatalf("unexpected document %s", doc.Number)
	}
	for _, key := range sequencedomain.Keys() {
		counter, err := f.sequences.PeekCounter(ctx, key, 2026)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counter, key)
	}

	got, err := f.svc.Confirm(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "BKG-26000002", got.Reference)
	assert.Equal(t, "INV-2026-00002", got.Invoice.Number)
	require.NotNil(t, got.Quote)
	assert.Equal(t, "QUO-2026-00002", got.Quote.Number)
}

func TestConfirmRejectsInvalidAmountsBeforeAllocating(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req := confirmRequest("bkg_3")
	req.VATAmountPence = req.TotalAmountPence + 1
	_, err := f.svc.Confirm(ctx, req)
	assert.ErrorIs(t, err, documentdomain.ErrInvalidAmount)
	assert.NotErrorIs(t, err, domain.ErrCouldNotFinalize)

	for _, key := range sequencedomain.Keys() {
		counter, err := f.sequences.PeekCounter(ctx, key, 2026)
		require.NoError(t, err)
		assert.Equal(t, int64(0), counter, key)
	}
}

func TestConfirmConcurrentBookingsGetDistinctNumbers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const bookings = 10
	refs := make([]string, bookings)
	invoices := make([]string, bookings)

	var g errgroup.Group
	for i := 0; i < bookings; i++ {
		g.Go(func() error {
			got, err := f.svc.Confirm(ctx, confirmRequest(fmt.Sprintf("bkg_%d", i)))
			if err != nil {
				return err
			}
			refs[i] = got.Reference
			invoices[i] = got.Invoice.Number
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, unique(refs), bookings)
	assert.Len(t, unique(invoices), bookings)
}

func unique(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
