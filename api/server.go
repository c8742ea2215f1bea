package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"exposure/analyzer"
	"exposure/article"
	"exposure/notify"
	"exposure/publish"
	"exposure/taskstore"
)

// Server bundles the services behind the HTTP API
type Server struct {
	analyzer *analyzer.Service
	tasks    taskstore.Store
	articles *article.Repository
	pipeline *publish.Pipeline
	notify   *notify.Service
}

// NewServer wires the API server
func NewServer(an *analyzer.Service, tasks taskstore.Store, articles *article.Repository, pipeline *publish.Pipeline, notifications *notify.Service) *Server {
	return &Server{
		analyzer: an,
		tasks:    tasks,
		articles: articles,
		pipeline: pipeline,
		notify:   notifications,
	}
}

// Router constructs a Gin engine with registered routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	s.RegisterAnalyzeRoutes(r)
	s.RegisterArticleRoutes(r)
	s.RegisterNotificationRoutes(r)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

// userID resolves the authenticated caller. Authentication itself is an
// upstream concern; the gateway injects the header.
func userID(c *gin.Context) string {
	if id := c.GetHeader("X-User-ID"); id != "" {
		return id
	}
	return "unknown"
}
