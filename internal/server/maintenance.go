package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/motorbook/internal/maintenance"
)

type cleanupRequest struct {
	Statuses       []string `json:"statuses"`
	Types          []string `json:"types"`
	All            bool     `json:"all"`
	Year           int      `json:"year"`
	ResetSequences bool     `json:"reset_sequences"`
	Keys           []string `json:"keys"`
}

func (s *Server) Cleanup(c *gin.Context) {
	var req cleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	statuses, err := parseStatuses(req.Statuses)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	types, err := parseTypes(req.Types)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	keys, err := parseKeys(req.Keys)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.maintenance.Cleanup(c.Request.Context(), maintenance.CleanupRequest{
		Statuses:       statuses,
		Types:          types,
		All:            req.All,
		Year:           req.Year,
		ResetSequences: req.ResetSequences,
		Keys:           keys,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
