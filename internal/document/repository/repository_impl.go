package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/motorbook/internal/document/domain"
	"github.com/smallbiznis/motorbook/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, doc *domain.Document) error {
	return db.WithContext(ctx).Create(doc).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Document, error) {
	var doc domain.Document
	err := db.WithContext(ctx).Where("id = ?", id).Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.Filter, after *pagination.Cursor, limit int) ([]domain.Document, error) {
	stmt := applyFilter(db.WithContext(ctx).Model(&domain.Document{}), filter)
	if after != nil {
		stmt = stmt.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			after.CreatedAt.UTC(), after.CreatedAt.UTC(), after.ID,
		)
	}

	var docs []domain.Document
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, change domain.StatusChange) (int64, error) {
	updates := map[string]interface{}{
		"status":     change.Status,
		"updated_at": change.UpdatedAt,
	}
	if change.IssuedAt != nil {
		updates["issued_at"] = change.IssuedAt.UTC()
	}
	if change.DueAt != nil {
		updates["due_at"] = change.DueAt.UTC()
	}
	if change.PaidAt != nil {
		updates["paid_at"] = change.PaidAt.UTC()
	}
	if change.PaymentMethod != nil {
		updates["payment_method"] = *change.PaymentMethod
	}

	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, filter domain.Filter) (int64, error) {
	stmt := applyFilter(db.WithContext(ctx), filter)
	if !filter.HasCriteria() {
		// gorm refuses unconditional deletes unless asked explicitly.
		stmt = stmt.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	res := stmt.Delete(&domain.Document{})
	return res.RowsAffected, res.Error
}

func applyFilter(stmt *gorm.DB, filter domain.Filter) *gorm.DB {
	if len(filter.Types) > 0 {
		stmt = stmt.Where("type IN ?", filter.Types)
	}
	if len(filter.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", filter.Statuses)
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", filter.CreatedTo.UTC())
	}
	if bookingID := strings.TrimSpace(filter.BookingID); bookingID != "" {
		stmt = stmt.Where("booking_id = ?", bookingID)
	}
	if filter.Year != 0 {
		stmt = stmt.Where("year = ?", filter.Year)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		stmt = stmt.Where(
			"(LOWER(number) LIKE ? ESCAPE '!' OR LOWER(customer_name) LIKE ? ESCAPE '!' OR LOWER(customer_email) LIKE ? ESCAPE '!')",
			pattern, pattern, pattern,
		)
	}
	return stmt
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
