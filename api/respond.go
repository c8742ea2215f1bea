package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"exposure/types"
)

// respondError maps the error taxonomy onto HTTP status codes:
// validation 400, forbidden 403, missing 404, state/version conflicts 409,
// upstream analyzer/publish failures 502. Everything else is a 500.
func respondError(c *gin.Context, err error) {
	var (
		validation *types.ValidationError
		forbidden  *types.ForbiddenError
		conflict   *types.StateConflictError
		stale      *types.StaleVersionError
		analysis   *types.AnalysisError
		pubErr     *types.PublishError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": forbidden.Error()})
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":     conflict.Error(),
			"current":   conflict.Current,
			"attempted": conflict.Attempted,
		})
	case errors.As(err, &stale):
		c.JSON(http.StatusConflict, gin.H{
			"error":            stale.Error(),
			"current_version":  stale.Actual,
			"expected_version": stale.Expected,
		})
	case errors.As(err, &analysis):
		c.JSON(http.StatusBadGateway, gin.H{"error": analysis.Error()})
	case errors.As(err, &pubErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": pubErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
