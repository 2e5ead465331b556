package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListSlots(c *gin.Context) {
	slots, err := s.slotRepo.ListActive(c.Request.Context(), s.db)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}
