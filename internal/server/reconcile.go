package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/slotworks/bookpay/internal/reconciler"
)

type reconcileRequest struct {
	WindowHours int `json:"window_hours"`
}

// TriggerReconcile runs one sweep on demand. The periodic sweeper covers
// steady state; this exists for operators chasing a specific incident.
func (s *Server) TriggerReconcile(c *gin.Context) {
	var req reconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}
	if req.WindowHours < 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var window reconciler.Window
	if req.WindowHours > 0 {
		from := s.clock.Now().UTC().Add(-time.Duration(req.WindowHours) * time.Hour)
		window.From = &from
	}

	report, err := s.reconciler.Reconcile(c.Request.Context(), window)
	// A sweep that repaired some payments and failed on others still
	// reports what it did; partial progress is the normal case here.
	if err != nil && report.Scanned == 0 {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
