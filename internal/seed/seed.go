package seed

import (
	"context"
	"errors"
	"fmt"

	documentdomain "github.com/smallbiznis/motorbook/internal/document/domain"
	sequencedomain "github.com/smallbiznis/motorbook/internal/sequence/domain"
	"go.uber.org/zap"
)

type demoCustomer struct {
	name, email, registration, make, model, service string
	totalPence                                      int64
}

var demoCustomers = []demoCustomer{
	{"Jane Smith", "jane.smith@example.com", "AB12 CDE", "Ford", "Fiesta", "Interim service", 14900},
	{"Tom Baker", "tom@example.org", "KX19 LMN", "Vauxhall", "Corsa", "MOT", 5485},
	{"Priya Patel", "priya.patel@example.co.uk", "YT70 PQR", "Toyota", "Yaris", "Full service", 24900},
	{"Owen Jones", "owen.jones@example.com", "WD68 STU", "Volkswagen", "Golf", "Brake pads", 18900},
}

type Seeder struct {
	log       *zap.Logger
	sequences sequencedomain.Service
	documents documentdomain.Service
}

func New(log *zap.Logger, sequences sequencedomain.Service, documents documentdomain.Service) *Seeder {
	return &Seeder{
		log:       log.Named("seed"),
		sequences: sequences,
		documents: documents,
	}
}

// EnsureSequences creates missing counters for year. Existing counters are never modified.
func (s *Seeder) EnsureSequences(ctx context.Context, year int) error {
	if s == nil || s.sequences == nil {
		return errors.New("seed sequence service is required")
	}
	if err := s.sequences.Ensure(ctx, year); err != nil {
		return err
	}
	s.log.Info("sequence rows ensured", zap.Int("year", year))
	return nil
}

// Demo issues count documents through the normal issuance path, alternating
// draft quotes and issued invoices.
func (s *Seeder) Demo(ctx context.Context, year, count int) ([]documentdomain.Document, error) {
	if s == nil || s.documents == nil {
		return nil, errors.New("seed document service is required")
	}

	docs := make([]documentdomain.Document, 0, count)
	for i := 0; i < count; i++ {
		c := demoCustomers[i%len(demoCustomers)]
		req := documentdomain.IssueRequest{
			Type:             documentdomain.TypeQuote,
			Year:             year,
			Status:           documentdomain.StatusDraft,
			TotalAmountPence: c.totalPence,
			VATAmountPence:   c.totalPence / 6,
			Payload: documentdomain.Payload{
				Customer: documentdomain.Customer{Name: c.name, Email: c.email},
				Vehicle:  documentdomain.Vehicle{Registration: c.registration, Make: c.make, Model: c.model},
				Booking:  documentdomain.BookingSnapshot{ServiceName: c.service},
				Lines: []documentdomain.LineItem{{
					Description: c.service,
					Quantity:    1,
					UnitPence:   c.totalPence,
					AmountPence: c.totalPence,
				}},
			},
		}
		if i%2 == 1 {
			req.Type = documentdomain.TypeInvoice
			req.Status = documentdomain.StatusIssued
		}

		doc, err := s.documents.Issue(ctx, req)
		if err != nil {
			return docs, fmt.Errorf("seed document %d: %w", i+1, err)
		}
		docs = append(docs, doc)
	}

	s.log.Info("demo documents issued", zap.Int("count", len(docs)), zap.Int("year", year))
	return docs, nil
}
