package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterNotificationRoutes registers notification routes
func (s *Server) RegisterNotificationRoutes(r *gin.Engine) {
	r.GET("/notifications", s.handleListNotifications)
	r.GET("/notifications/unread-count", s.handleUnreadCount)
	r.POST("/notifications/:id/read", s.handleMarkRead)
}

func (s *Server) handleListNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, s.notify.ListForUser(userID(c)))
}

func (s *Server) handleUnreadCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": s.notify.UnreadCount(userID(c))})
}

func (s *Server) handleMarkRead(c *gin.Context) {
	if err := s.notify.MarkRead(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
