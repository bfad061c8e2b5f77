package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"text2shorts/proposals"

	"github.com/gin-gonic/gin"
)

// DraftRequest asks for proposals drafted from a feed and/or an article.
type DraftRequest struct {
	Feed      string `json:"feed,omitempty"`
	URL       string `json:"url,omitempty"`
	Series    string `json:"series" binding:"required"`
	Count     int    `json:"count,omitempty"`
	TopicFile string `json:"topic_file,omitempty"`
}

// RegisterProposalRoutes registers proposal drafting endpoints.
func (s *Server) RegisterProposalRoutes(r *gin.Engine) {
	g := r.Group("/api/proposals")
	g.POST("/draft", s.handleDraft)
}

// handleDraft drafts in the background and returns 202 Accepted immediately.
// Progress is reported through the log ring.
func (s *Server) handleDraft(c *gin.Context) {
	if s.drafter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "drafting is not configured"})
		return
	}
	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Feed == "" && req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "feed or url is required"})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ids, err := s.draft(s.ctx, req)
		if err != nil {
			log.Printf("❌ Drafting failed: %v", err)
			s.state.AddLog(fmt.Sprintf("drafting %s failed: %v", req.Series, err))
			return
		}
		s.state.AddLog(fmt.Sprintf("drafted %d proposals for %s", len(ids), req.Series))
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "drafting started"})
}

func (s *Server) draft(ctx context.Context, req DraftRequest) ([]string, error) {
	var sources []*proposals.Source
	if req.Feed != "" {
		fetched, err := proposals.FetchFeed(ctx, req.Feed, req.Count)
		if err != nil {
			return nil, err
		}
		sources = append(sources, fetched...)
	}
	if req.URL != "" {
		src, err := proposals.FetchArticle(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	ids, err := s.drafter.Draft(ctx, req.Series, sources)
	if req.TopicFile != "" && len(ids) > 0 {
		if appendErr := proposals.AppendTopics(req.TopicFile, ids); appendErr != nil {
			return ids, appendErr
		}
	}
	return ids, err
}
