package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	sequencedomain "github.com/smallbiznis/motorbook/internal/sequence/domain"
	"gorm.io/datatypes"
)

type Type string

const (
	TypeInvoice Type = "INVOICE"
	TypeQuote   Type = "QUOTE"
)

func (t Type) Valid() bool {
	return t == TypeInvoice || t == TypeQuote
}

// SequenceKey maps a document type to the counter its numbers are drawn from.
// TypeForKey maps a sequence key back to the document type numbered by it.
func TypeForKey(key sequencedomain.Key) (Type, bool) {
	switch key {
	case sequencedomain.KeyInvoice:
		return TypeInvoice, true
	case sequencedomain.KeyQuote:
		return TypeQuote, true
	default:
		return "", false
	}
}

func (t Type) SequenceKey() (sequencedomain.Key, error) {
	switch t {
	case TypeInvoice:
		return sequencedomain.KeyInvoice, nil
	case TypeQuote:
		return sequencedomain.KeyQuote, nil
	default:
		return "", ErrInvalidType
	}
}

func ParseType(value string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(value)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// Status moves DRAFT -> ISSUED -> PAID, with CANCELLED reachable from DRAFT
// or ISSUED. Transitions are owned by billing logic; documents store what they are given.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusIssued    Status = "ISSUED"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusIssued, StatusPaid, StatusCancelled:
		return true
	default:
		return false
	}
}

func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

type Document struct {
	ID               snowflake.ID                `gorm:"primaryKey;autoIncrement:false;index:ix_documents_created_id,priority:2" json:"id"`
	Number           string                      `gorm:"type:varchar(64);not null;uniqueIndex:ux_documents_type_number,priority:2" json:"number"`
	Type             Type                        `gorm:"type:varchar(16);not null;uniqueIndex:ux_documents_type_number,priority:1" json:"type"`
	Status           Status                      `gorm:"type:varchar(16);not null;index" json:"status"`
	Year             int                         `gorm:"not null" json:"year"`
	TotalAmountPence int64                       `gorm:"column:total_amount_pence;not null" json:"total_amount_pence"`
	VATAmountPence   int64                       `gorm:"column:vat_amount_pence;not null" json:"vat_amount_pence"`
	CustomerName     string                      `gorm:"type:varchar(255);not null;default:''" json:"customer_name"`
	CustomerEmail    string                      `gorm:"type:varchar(255);not null;default:''" json:"customer_email"`
	BookingID        *string                     `gorm:"type:varchar(64);index" json:"booking_id,omitempty"`
	PaymentMethod    *string                     `gorm:"type:varchar(32)" json:"payment_method,omitempty"`
	Payload          datatypes.JSONType[Payload] `gorm:"not null" json:"payload"`
	CreatedAt        time.Time                   `gorm:"not null;index:ix_documents_created_id,priority:1" json:"created_at"`
	UpdatedAt        time.Time                   `gorm:"not null" json:"updated_at"`
	IssuedAt         *time.Time                  `json:"issued_at,omitempty"`
	DueAt            *time.Time                  `json:"due_at,omitempty"`
	PaidAt           *time.Time                  `json:"paid_at,omitempty"`
}

func (Document) TableName() string { return "documents" }

// Payload is the customer and booking snapshot taken at issuance.
type Payload struct {
	Customer Customer        `json:"customer"`
	Vehicle  Vehicle         `json:"vehicle"`
	Booking  BookingSnapshot `json:"booking"`
	Lines    []LineItem      `json:"lines,omitempty"`
	Notes    string          `json:"notes,omitempty"`
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Vehicle struct {
	Registration string `json:"registration,omitempty"`
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Mileage      int64  `json:"mileage,omitempty"`
}

type BookingSnapshot struct {
	Reference   string     `json:"reference,omitempty"`
	ServiceName string     `json:"service_name,omitempty"`
	ServiceDate *time.Time `json:"service_date,omitempty"`
}

type LineItem struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPence   int64  `json:"unit_pence"`
	AmountPence int64  `json:"amount_pence"`
}

// Filter selects documents. Zero-valued fields do not constrain the match.
type Filter struct {
	Types       []Type
	Statuses    []Status
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	// Search matches the number, customer name or customer email, case-insensitively.
	Search    string
	BookingID string
	Year      int
	// All permits a filter with no criteria. Criteria still apply when set.
	All bool
}

// HasCriteria reports whether any field narrows the match.
func (f Filter) HasCriteria() bool {
	return len(f.Types) > 0 ||
		len(f.Statuses) > 0 ||
		f.CreatedFrom != nil ||
		f.CreatedTo != nil ||
		strings.TrimSpace(f.Search) != "" ||
		strings.TrimSpace(f.BookingID) != "" ||
		f.Year != 0
}

func (f Filter) Validate() error {
	for _, t := range f.Types {
		if !t.Valid() {
			return ErrInvalidType
		}
	}
	for _, s := range f.Statuses {
		if !s.Valid() {
			return ErrInvalidStatus
		}
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedTo.Before(*f.CreatedFrom) {
		return ErrInvalidDateRange
	}
	return nil
}
