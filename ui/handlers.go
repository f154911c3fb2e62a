package ui

import (
	"net/http"

	"tableserve/internal/errors"

	"github.com/gin-gonic/gin"
)

// handleListRows returns every row of the source; never fails
func (s *Server) handleListRows(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.ListRows(c.Request.Context()))
}

// handleRowsByIndex returns the rows whose index matches the path parameter
func (s *Server) handleRowsByIndex(c *gin.Context) {
	rows, err := s.service.RowsByIndex(c.Request.Context(), c.Param("index"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

// respondError maps NOT_FOUND to 404 and anything else to 500
func (s *Server) respondError(c *gin.Context, err error) {
	if errors.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.logger.Error("[API] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
