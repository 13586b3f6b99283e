package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	sequencedomain "github.com/smallbiznis/motorbook/internal/sequence/domain"
)

func (s *Server) ListSequences(c *gin.Context) {
	year, err := parseYear(c.Param("year"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items, err := s.sequenceSvc.List(c.Request.Context(), year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) PeekSequence(c *gin.Context) {
	key, year, ok := sequenceParams(c)
	if !ok {
		return
	}

	counter, err := s.sequenceSvc.PeekCounter(c.Request.Context(), key, year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"key":     key,
		"year":    year,
		"counter": counter,
	}})
}

func (s *Server) ResetSequence(c *gin.Context) {
	key, year, ok := sequenceParams(c)
	if !ok {
		return
	}

	if err := s.sequenceSvc.ResetCounter(c.Request.Context(), key, year); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"key":     key,
		"year":    year,
		"counter": 0,
	}})
}

func sequenceParams(c *gin.Context) (sequencedomain.Key, int, bool) {
	year, err := parseYear(c.Param("year"))
	if err != nil {
		AbortWithError(c, err)
		return "", 0, false
	}
	key, err := sequencedomain.ParseKey(c.Param("key"))
	if err != nil {
		AbortWithError(c, err)
		return "", 0, false
	}
	return key, year, true
}
