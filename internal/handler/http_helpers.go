package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/imagegallery/internal/validation"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondValidation writes field errors as a 400 and reports whether err
// carried any.
func respondValidation(c *gin.Context, err error) bool {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verrs})
	return true
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
