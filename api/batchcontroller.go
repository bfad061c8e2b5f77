package api

import (
	"errors"
	"net/http"

	"text2shorts/state"
	"text2shorts/types"

	"github.com/gin-gonic/gin"
)

// RegisterHealthRoutes registers the liveness endpoint.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterBatchRoutes registers batch control endpoints.
func (s *Server) RegisterBatchRoutes(r *gin.Engine) {
	r.GET("/api/status", s.handleStatus)

	g := r.Group("/api/batch")
	g.POST("", s.handleStartBatch)
	g.POST("/stop", s.handleStopBatch)
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.GetStatus())
}

// handleStartBatch starts a batch asynchronously and returns 202 Accepted.
func (s *Server) handleStartBatch(c *gin.Context) {
	var req types.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID, err := s.StartBatch(req)
	switch {
	case errors.Is(err, state.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "started",
		"run_id": runID,
	})
}

func (s *Server) handleStopBatch(c *gin.Context) {
	if err := s.Stop(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set interrupt flag: " + err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status": "stopping",
		"state":  s.state.GetState(),
	})
}
