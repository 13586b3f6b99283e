package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/smallbiznis/motorbook/internal/booking/domain"
	documentdomain "github.com/smallbiznis/motorbook/internal/document/domain"
)

type confirmBookingRequest struct {
	Payload          documentdomain.Payload `json:"payload"`
	TotalAmountPence int64                  `json:"total_amount_pence"`
	VATAmountPence   int64                  `json:"vat_amount_pence"`
	DueInDays        int                    `json:"due_in_days"`
	PaymentMethod    *string                `json:"payment_method"`
	IssueQuote       bool                   `json:"issue_quote"`
}

func (s *Server) ConfirmBooking(c *gin.Context) {
	var req confirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.DueInDays < 0 {
		AbortWithError(c, newValidationError("due_in_days", "invalid_due_in_days", "due_in_days must not be negative"))
		return
	}

	setDocumentType(c, string(documentdomain.TypeInvoice))
	confirmation, err := s.bookingSvc.Confirm(c.Request.Context(), bookingdomain.ConfirmRequest{
		BookingID:        strings.TrimSpace(c.Param("id")),
		Payload:          req.Payload,
		TotalAmountPence: req.TotalAmountPence,
		VATAmountPence:   req.VATAmountPence,
		DueIn:            time.Duration(req.DueInDays) * 24 * time.Hour,
		PaymentMethod:    req.PaymentMethod,
		IssueQuote:       req.IssueQuote,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": confirmation})
}
