// Package export renders documents as spreadsheet-friendly CSV.
package export

import (
	"fmt"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/smallbiznis/motorbook/internal/document/domain"
)

// TimeLayout is used for every timestamp column; values are written in UTC.
const TimeLayout = time.RFC3339

// Header lists the columns in output order.
var Header = []string{
	"number", "type", "status", "totalPence", "vatPence",
	"createdAt", "issuedAt", "dueAt", "paidAt", "paymentMethod", "bookingId",
}

// Row is one CSV record. Field order defines column order.
type Row struct {
	Number        string `csv:"number"`
	Type          string `csv:"type"`
	Status        string `csv:"status"`
	TotalPence    int64  `csv:"totalPence"`
	VATPence      int64  `csv:"vatPence"`
	CreatedAt     string `csv:"createdAt"`
	IssuedAt      string `csv:"issuedAt"`
	DueAt         string `csv:"dueAt"`
	PaidAt        string `csv:"paidAt"`
	PaymentMethod string `csv:"paymentMethod"`
	BookingID     string `csv:"bookingId"`
}

func FromDocument(doc domain.Document) Row {
	return Row{
		Number:        doc.Number,
		Type:          string(doc.Type),
		Status:        string(doc.Status),
		TotalPence:    doc.TotalAmountPence,
		VATPence:      doc.VATAmountPence,
		CreatedAt:     formatTime(&doc.CreatedAt),
		IssuedAt:      formatTime(doc.IssuedAt),
		DueAt:         formatTime(doc.DueAt),
		PaidAt:        formatTime(doc.PaidAt),
		PaymentMethod: deref(doc.PaymentMethod),
		BookingID:     deref(doc.BookingID),
	}
}

// ExportCSV writes the header and one row per document, in input order.
func ExportCSV(docs []domain.Document) ([]byte, error) {
	rows := make([]*Row, 0, len(docs))
	for _, doc := range docs {
		row := FromDocument(doc)
		rows = append(rows, &row)
	}
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("marshal documents csv: %w", err)
	}
	return out, nil
}

// ParseCSV reads data produced by ExportCSV back into documents. Columns the
// export does not carry (id, payload, customer fields) stay zero.
func ParseCSV(data []byte) ([]domain.Document, error) {
	var rows []*Row
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal documents csv: %w", err)
	}

	docs := make([]domain.Document, 0, len(rows))
	for i, row := range rows {
		doc, err := row.Document()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r Row) Document() (domain.Document, error) {
	docType, err := domain.ParseType(r.Type)
	if err != nil {
		return domain.Document{}, err
	}
	status, err := domain.ParseStatus(r.Status)
	if err != nil {
		return domain.Document{}, err
	}

	doc := domain.Document{
		Number:           r.Number,
		Type:             docType,
		Status:           status,
		TotalAmountPence: r.TotalPence,
		VATAmountPence:   r.VATPence,
		PaymentMethod:    ref(r.PaymentMethod),
		BookingID:        ref(r.BookingID),
	}

	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return domain.Document{}, fmt.Errorf("createdAt: %w", err)
	}
	if createdAt != nil {
		doc.CreatedAt = *createdAt
	}
	if doc.IssuedAt, err = parseTime(r.IssuedAt); err != nil {
		return domain.Document{}, fmt.Errorf("issuedAt: %w", err)
	}
	if doc.DueAt, err = parseTime(r.DueAt); err != nil {
		return domain.Document{}, fmt.Errorf("dueAt: %w", err)
	}
	if doc.PaidAt, err = parseTime(r.PaidAt); err != nil {
		return domain.Document{}, fmt.Errorf("paidAt: %w", err)
	}
	return doc, nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

func parseTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
