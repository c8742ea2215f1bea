package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterAnalyzeRoutes registers merchant-analysis task routes
func (s *Server) RegisterAnalyzeRoutes(r *gin.Engine) {
	r.POST("/analyze", s.handleCreateTask)
	r.GET("/analyze/:task_id", s.handleGetTask)
}

type analyzeRequest struct {
	URL string `json:"url"`
}

// handleCreateTask submits a URL for analysis. A fresh cached result comes
// back as an already-completed task through the same contract.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.analyzer.Submit(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": task.ID,
		"status":  task.Status,
	})
}

// handleGetTask reports task state for pollers
func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.tasks.Get(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"status":   task.Status,
		"progress": task.Progress,
		"stage":    task.Stage,
	}
	if task.Result != nil {
		resp["result"] = task.Result
	}
	if task.Error != "" {
		resp["error"] = task.Error
	}
	c.JSON(http.StatusOK, resp)
}
