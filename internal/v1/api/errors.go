package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classroom-games/chicken-backend/internal/v1/apierr"
)

// respondError maps a domain error onto the HTTP envelope described in
// spec.md §6/§7: always {"detail": "..."}, status chosen from the error's
// Kind. Anything that isn't an *apierr.Error is treated as an unexpected
// internal failure.
func respondError(c *gin.Context, err error) {
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
		return
	}

	switch apiErr.Kind {
	case apierr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"detail": apiErr.Detail})
	case apierr.KindInvalidState, apierr.KindInvalidInput, apierr.KindConflict:
		c.JSON(http.StatusBadRequest, gin.H{"detail": apiErr.Detail})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": apiErr.Detail})
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return false
	}
	return true
}
