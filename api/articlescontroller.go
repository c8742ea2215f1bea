package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"exposure/article"
	"exposure/types"
)

// RegisterArticleRoutes registers article lifecycle routes
func (s *Server) RegisterArticleRoutes(r *gin.Engine) {
	r.POST("/articles/generate", s.handleGenerate)
	r.POST("/articles", s.handleCreateArticle)
	r.GET("/articles", s.handleListArticles)
	r.GET("/articles/:id", s.handleGetArticle)
	r.PATCH("/articles/:id", s.handlePatchArticle)
	r.DELETE("/articles/:id", s.handleDeleteArticle)

	r.POST("/articles/:id/submit", s.handleSubmit)
	r.POST("/articles/:id/self-check", s.handleSelfCheck)
	r.POST("/articles/:id/approve", s.handleApprove)
	r.POST("/articles/:id/reject", s.handleReject)
	r.POST("/articles/:id/publish", s.handlePublish)

	r.GET("/articles/:id/versions", s.handleListVersions)
	r.POST("/articles/:id/restore/:version_number", s.handleRestore)
}

type generateRequest struct {
	AnalyzerResult *types.AnalysisResult    `json:"analyzer_result"`
	Config         article.GenerationConfig `json:"config"`
}

// handleGenerate composes a draft payload without persisting anything
func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft, err := article.Compose(req.AnalyzerResult, req.Config)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// handleCreateArticle persists a draft at version 1
func (s *Server) handleCreateArticle(c *gin.Context) {
	var draft types.Article
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := s.articles.Create(c.Request.Context(), &draft, userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleListArticles(c *gin.Context) {
	list, err := s.articles.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetArticle(c *gin.Context) {
	a, err := s.articles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// handlePatchArticle applies a partial edit; omitted fields stay untouched
func (s *Server) handlePatchArticle(c *gin.Context) {
	var patch types.ArticlePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := s.articles.Update(c.Request.Context(), c.Param("id"), patch, expectedVersion(c), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) handleDeleteArticle(c *gin.Context) {
	id := c.Param("id")
	if err := s.articles.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	// Weak references: attempted, never required to succeed atomically
	s.notify.DropRelated("article", id)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSubmit(c *gin.Context) {
	a, err := s.articles.Submit(c.Request.Context(), c.Param("id"), expectedVersion(c), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": a.Status, "version": a.Version})
}

func (s *Server) handleSelfCheck(c *gin.Context) {
	a, err := s.articles.SelfCheck(c.Request.Context(), c.Param("id"), expectedVersion(c), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": a.Status, "version": a.Version})
}

func (s *Server) handleApprove(c *gin.Context) {
	a, err := s.articles.Approve(c.Request.Context(), c.Param("id"), expectedVersion(c), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": a.Status, "version": a.Version})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleReject(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := s.articles.Reject(c.Request.Context(), c.Param("id"), expectedVersion(c), userID(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": a.Status, "version": a.Version})
}

// handlePublish runs the publish pipeline on a ready article. Upstream
// failures surface as a structured 502 with the article untouched.
func (s *Server) handlePublish(c *gin.Context) {
	result, err := s.pipeline.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListVersions(c *gin.Context) {
	versions, err := s.articles.ListVersions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

func (s *Server) handleRestore(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("version_number"))
	if err != nil || number < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "version_number must be a positive integer"})
		return
	}

	a, err := s.articles.Restore(c.Request.Context(), c.Param("id"), number, userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// expectedVersion reads the optional optimistic-concurrency check from the
// query string; 0 means the caller did not assert a version
func expectedVersion(c *gin.Context) int {
	v, err := strconv.Atoi(c.DefaultQuery("expected_version", "0"))
	if err != nil {
		return 0
	}
	return v
}
