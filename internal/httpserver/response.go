package httpserver

import (
	"errors"
	"net/http"

	productdomain "catalog/backend/internal/domain/product"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: message})
}

// writeServiceError maps a use-case error onto a status code and message.
func (s *Server) writeServiceError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "error", err)
		writeError(c, status, "Internal server error: "+err.Error())
		return
	}
	writeError(c, status, err.Error())
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, productdomain.ErrVariantNotFound),
		errors.Is(err, productdomain.ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, productdomain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
