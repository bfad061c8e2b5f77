package api

import (
	"net/http"

	"text2shorts/status"

	"github.com/gin-gonic/gin"
)

// RegisterReportRoutes registers the progress report endpoints.
func (s *Server) RegisterReportRoutes(r *gin.Engine) {
	r.GET("/api/report", s.handleReport)
	r.GET("/api/titles", s.handleTitles)
}

// handleReport scans the topic list named by ?topics=.
func (s *Server) handleReport(c *gin.Context) {
	topics := c.Query("topics")
	if topics == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topics query parameter is required"})
		return
	}

	summary, err := status.Report(topics, s.outputsDir, s.proposalsDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
		"text":    summary.String(),
	})
}

func (s *Server) handleTitles(c *gin.Context) {
	titles, err := status.Titles(s.proposalsDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"titles": titles,
		"count":  len(titles),
	})
}
