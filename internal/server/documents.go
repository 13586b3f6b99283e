package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	documentdomain "github.com/smallbiznis/motorbook/internal/document/domain"
)

type updateDocumentStatusRequest struct {
	Status        string     `json:"status"`
	IssuedAt      *time.Time `json:"issued_at"`
	DueAt         *time.Time `json:"due_at"`
	PaidAt        *time.Time `json:"paid_at"`
	PaymentMethod *string    `json:"payment_method"`
}

func (s *Server) ListDocuments(c *gin.Context) {
	filter, err := parseDocumentFilter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pageSize, err := parseOptionalInt(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid page_size"))
		return
	}
	req := documentdomain.ListRequest{
		Filter:    filter,
		PageToken: strings.TrimSpace(c.Query("page_token")),
	}
	if pageSize != nil {
		req.PageSize = *pageSize
	}

	resp, err := s.documentSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Documents,
		"page_info": resp.PageInfo,
	})
}

func (s *Server) GetDocumentByID(c *gin.Context) {
	item, err := s.documentSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	setDocumentType(c, string(item.Type))
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) UpdateDocumentStatus(c *gin.Context) {
	var req updateDocumentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	status, err := documentdomain.ParseStatus(req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.documentSvc.UpdateStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")), documentdomain.UpdateStatusRequest{
		Status:        status,
		IssuedAt:      req.IssuedAt,
		DueAt:         req.DueAt,
		PaidAt:        req.PaidAt,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	setDocumentType(c, string(item.Type))
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) ExportDocuments(c *gin.Context) {
	filter, err := parseDocumentFilter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := s.documentSvc.Export(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(filter)))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// DeleteDocuments takes its filter from the query string; all=true is required to delete without criteria.
func (s *Server) DeleteDocuments(c *gin.Context) {
	filter, err := parseDocumentFilter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	all, err := parseOptionalBool(c.Query("all"))
	if err != nil {
		AbortWithError(c, newValidationError("all", "invalid_all", "invalid all"))
		return
	}
	if all != nil {
		filter.All = *all
	}

	deleted, err := s.documentSvc.Delete(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": deleted}})
}

func parseDocumentFilter(c *gin.Context) (documentdomain.Filter, error) {
	types, err := parseTypes(c.QueryArray("type"))
	if err != nil {
		return documentdomain.Filter{}, err
	}
	statuses, err := parseStatuses(c.QueryArray("status"))
	if err != nil {
		return documentdomain.Filter{}, err
	}
	from, err := parseOptionalTime(c.Query("created_from"), false)
	if err != nil {
		return documentdomain.Filter{}, newValidationError("created_from", "invalid_created_from", "invalid created_from")
	}
	to, err := parseOptionalTime(c.Query("created_to"), true)
	if err != nil {
		return documentdomain.Filter{}, newValidationError("created_to", "invalid_created_to", "invalid created_to")
	}
	year, err := parseOptionalInt(c.Query("year"))
	if err != nil {
		return documentdomain.Filter{}, newValidationError("year", "invalid_year", "invalid year")
	}

	filter := documentdomain.Filter{
		Types:       types,
		Statuses:    statuses,
		CreatedFrom: from,
		CreatedTo:   to,
		Search:      strings.TrimSpace(c.Query("q")),
		BookingID:   strings.TrimSpace(c.Query("booking_id")),
	}
	if year != nil {
		filter.Year = *year
	}
	if len(types) == 1 {
		setDocumentType(c, string(types[0]))
	}
	return filter, nil
}

// exportFilename names the CSV after the type and status filters, e.g. documents-invoice-paid.csv.
func exportFilename(filter documentdomain.Filter) string {
	parts := []string{"documents"}
	for _, t := range filter.Types {
		parts = append(parts, string(t))
	}
	for _, st := range filter.Statuses {
		parts = append(parts, string(st))
	}
	return slug.Make(strings.Join(parts, " ")) + ".csv"
}
