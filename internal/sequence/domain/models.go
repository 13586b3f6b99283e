package domain

import (
	"strings"
	"time"
)

// Key names an independent counter family.
type Key string

const (
	KeyInvoice          Key = "INVOICE"
	KeyQuote            Key = "QUOTE"
	KeyBookingReference Key = "BOOKING_REFERENCE"
)

const (
	MinYear = 1970
	MaxYear = 9999
)

// Keys returns every known key in a stable order.
func Keys() []Key {
	return []Key{KeyInvoice, KeyQuote, KeyBookingReference}
}

func (k Key) Valid() bool {
	switch k {
	case KeyInvoice, KeyQuote, KeyBookingReference:
		return true
	default:
		return false
	}
}

func (k Key) String() string {
	return string(k)
}

// ParseKey accepts keys case-insensitively, with "-" allowed in place of "_".
func ParseKey(value string) (Key, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	key := Key(normalized)
	if !key.Valid() {
		return "", ErrInvalidKey
	}
	return key, nil
}

func ValidYear(year int) bool {
	return year >= MinYear && year <= MaxYear
}

// Sequence is the durable counter for one (key, year) pair. Counter holds the last allocated value.
type Sequence struct {
	Key       Key       `gorm:"column:seq_key;primaryKey;type:varchar(32)" json:"key"`
	Year      int       `gorm:"column:year;primaryKey;autoIncrement:false" json:"year"`
	Counter   int64     `gorm:"column:counter;not null;default:0" json:"counter"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Sequence) TableName() string { return "sequences" }
