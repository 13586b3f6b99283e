package service

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/motorbook/internal/clock"
	"github.com/smallbiznis/motorbook/internal/config"
	"github.com/smallbiznis/motorbook/internal/document/domain"
	"github.com/smallbiznis/motorbook/internal/document/export"
	"github.com/smallbiznis/motorbook/internal/document/format"
	"github.com/smallbiznis/motorbook/internal/observability/logger"
	"github.com/smallbiznis/motorbook/internal/observability/metrics"
	sequencedomain "github.com/smallbiznis/motorbook/internal/sequence/domain"
	"github.com/smallbiznis/motorbook/pkg/db"
	"github.com/smallbiznis/motorbook/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Sequences sequencedomain.Service
	Clock     clock.Clock
	Numbering *config.NumberingConfigHolder
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	sequences sequencedomain.Service
	clock     clock.Clock
	numbering *config.NumberingConfigHolder
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.System{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("document.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		sequences: p.Sequences,
		clock:     c,
		numbering: p.Numbering,
		metrics:   p.Metrics,
	}
}

// Issue commits the next number first and then stores the document in its
// own transaction. A number whose insert fails stays consumed, so a retry
// gets a fresh one instead of colliding again.
func (s *Service) Issue(ctx context.Context, req domain.IssueRequest) (domain.Document, error) {
	if err := req.Validate(); err != nil {
		return domain.Document{}, err
	}

	number, err := s.Reserve(ctx, req.Type, req.Year)
	if err != nil {
		return domain.Document{}, err
	}

	var doc domain.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.InsertTx(ctx, tx, req, number)
		if err != nil {
			return err
		}
		doc = inserted
		return nil
	})
	if err != nil {
		return domain.Document{}, err
	}

	s.metrics.RecordDocumentIssued(ctx, string(doc.Type))
	logger.WithDocument(logger.WithContext(ctx, s.log), doc.ID.String(), string(doc.Type), doc.Number).
		Info("document issued")
	return doc, nil
}

func (s *Service) IssueTx(ctx context.Context, tx *gorm.DB, req domain.IssueRequest) (domain.Document, error) {
	if err := req.Validate(); err != nil {
		return domain.Document{}, err
	}

	key, err := req.Type.SequenceKey()
	if err != nil {
		return domain.Document{}, err
	}
	seq, err := s.sequences.AllocateNextTx(ctx, tx, key, req.Year)
	if err != nil {
		return domain.Document{}, err
	}
	number, err := format.FormatNumber(s.template(req.Type), req.Year, seq)
	if err != nil {
		return domain.Document{}, err
	}

	return s.InsertTx(ctx, tx, req, number)
}

func (s *Service) Reserve(ctx context.Context, docType domain.Type, year int) (string, error) {
	key, err := docType.SequenceKey()
	if err != nil {
		return "", err
	}
	seq, err := s.sequences.AllocateNext(ctx, key, year)
	if err != nil {
		return "", err
	}
	return format.FormatNumber(s.template(docType), year, seq)
}

func (s *Service) InsertTx(ctx context.Context, tx *gorm.DB, req domain.IssueRequest, number string) (domain.Document, error) {
	if err := req.Validate(); err != nil {
		return domain.Document{}, err
	}
	status := req.Status
	if status == "" {
		status = domain.StatusDraft
	}

	now := s.clock.Now().UTC()
	doc := domain.Document{
		ID:               s.genID.Generate(),
		Number:           number,
		Type:             req.Type,
		Status:           status,
		Year:             req.Year,
		TotalAmountPence: req.TotalAmountPence,
		VATAmountPence:   req.VATAmountPence,
		CustomerName:     strings.TrimSpace(req.Payload.Customer.Name),
		CustomerEmail:    strings.TrimSpace(req.Payload.Customer.Email),
		BookingID:        req.BookingID,
		PaymentMethod:    req.PaymentMethod,
		Payload:          datatypes.NewJSONType(req.Payload),
		CreatedAt:        now,
		UpdatedAt:        now,
		IssuedAt:         utcPtr(req.IssuedAt),
		DueAt:            utcPtr(req.DueAt),
	}

	if err := s.repo.Insert(ctx, tx, &doc); err != nil {
		if db.IsDuplicateKeyErr(err) {
			s.metrics.RecordDuplicateNumber(ctx, string(req.Type))
			logger.WithDocument(logger.WithContext(ctx, s.log), doc.ID.String(), string(req.Type), number).
				Error("document number already taken", zap.Int("year", req.Year), zap.Error(err))
			return domain.Document{}, fmt.Errorf("%w: %s %s", domain.ErrDuplicateNumber, req.Type, number)
		}
		return domain.Document{}, err
	}

	return doc, nil
}

// Query streams matching documents page by page, newest first. Each call of
// the returned sequence starts again from the first page.
func (s *Service) Query(ctx context.Context, filter domain.Filter, pageSize int) iter.Seq2[domain.Document, error] {
	size := pagination.NormalizePageSize(pageSize)
	return func(yield func(domain.Document, error) bool) {
		if err := filter.Validate(); err != nil {
			yield(domain.Document{}, err)
			return
		}

		var after *pagination.Cursor
		for {
			page, err := s.repo.List(ctx, s.db, filter, after, size)
			if err != nil {
				yield(domain.Document{}, err)
				return
			}
			for _, doc := range page {
				if !yield(doc, nil) {
					return
				}
			}
			if len(page) < size {
				return
			}
			last := page[len(page)-1]
			after = &pagination.Cursor{ID: last.ID.Int64(), CreatedAt: last.CreatedAt}
		}
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if err := req.Filter.Validate(); err != nil {
		return domain.ListResponse{}, err
	}

	var after *pagination.Cursor
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListResponse{}, err
		}
		after = cursor
	}

	size := pagination.NormalizePageSize(req.PageSize)
	items, err := s.repo.List(ctx, s.db, req.Filter, after, size+1)
	if err != nil {
		return domain.ListResponse{}, err
	}

	docs, pageInfo, err := pagination.BuildCursorPageInfo(items, size, func(doc domain.Document) pagination.Cursor {
		return pagination.Cursor{ID: doc.ID.Int64(), CreatedAt: doc.CreatedAt}
	})
	if err != nil {
		return domain.ListResponse{}, err
	}
	if docs == nil {
		docs = []domain.Document{}
	}

	return domain.ListResponse{PageInfo: pageInfo, Documents: docs}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Document, error) {
	docID, err := parseID(id)
	if err != nil {
		return domain.Document{}, err
	}

	doc, err := s.repo.FindByID(ctx, s.db, docID)
	if err != nil {
		return domain.Document{}, err
	}
	if doc == nil {
		return domain.Document{}, domain.ErrNotFound
	}
	return *doc, nil
}

// UpdateStatus stores the given status and timestamps as-is.
func (s *Service) UpdateStatus(ctx context.Context, id string, req domain.UpdateStatusRequest) (domain.Document, error) {
	docID, err := parseID(id)
	if err != nil {
		return domain.Document{}, err
	}
	if !req.Status.Valid() {
		return domain.Document{}, domain.ErrInvalidStatus
	}

	var updated domain.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.UpdateStatus(ctx, tx, docID, domain.StatusChange{
			Status:        req.Status,
			IssuedAt:      req.IssuedAt,
			DueAt:         req.DueAt,
			PaidAt:        req.PaidAt,
			PaymentMethod: req.PaymentMethod,
			UpdatedAt:     s.clock.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrNotFound
		}

		doc, err := s.repo.FindByID(ctx, tx, docID)
		if err != nil {
			return err
		}
		if doc == nil {
			return domain.ErrNotFound
		}
		updated = *doc
		return nil
	})
	if err != nil {
		return domain.Document{}, err
	}

	logger.WithDocument(logger.WithContext(ctx, s.log), updated.ID.String(), string(updated.Type), updated.Number).
		Info("document status updated", zap.String("status", string(updated.Status)))
	return updated, nil
}

// Delete removes every matching document. A filter without criteria is
// rejected unless All is set.
func (s *Service) Delete(ctx context.Context, filter domain.Filter) (int64, error) {
	if !filter.HasCriteria() && !filter.All {
		return 0, domain.ErrEmptyFilter
	}
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	count, err := s.repo.Delete(ctx, s.db, filter)
	if err != nil {
		return 0, err
	}

	s.metrics.RecordDocumentsDeleted(ctx, count)
	logger.WithContext(ctx, s.log).Warn("documents deleted",
		zap.Int64("count", count),
		zap.Bool("all", filter.All && !filter.HasCriteria()),
	)
	return count, nil
}

func (s *Service) Export(ctx context.Context, filter domain.Filter) ([]byte, error) {
	var docs []domain.Document
	for doc, err := range s.Query(ctx, filter, pagination.MaxPageSize) {
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return export.ExportCSV(docs)
}

func (s *Service) template(t domain.Type) string {
	templates := s.numbering.Get().Templates
	if t == domain.TypeQuote {
		return templates.Quote
	}
	return templates.Invoice
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
