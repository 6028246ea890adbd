package httpserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"catalog/backend/internal/config"

	"github.com/gin-gonic/gin"
)

func withLogging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		size := c.Writer.Size()
		if size < 0 {
			size = 0
		}
		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogAttrs(c.Request.Context(), level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", size),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

func withRecovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.ErrorContext(c.Request.Context(), "panic serving request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"panic", recovered,
		)
		writeError(c, http.StatusInternalServerError, "internal server error")
	})
}

// withCORS applies the static cross-origin policy. Preflight requests are
// answered here and never reach a route.
func withCORS(policy config.CORS) gin.HandlerFunc {
	methods := strings.Join(policy.AllowedMethods, ", ")
	headers := strings.Join(policy.AllowedHeaders, ", ")
	wildcardHeaders := false
	for _, h := range policy.AllowedHeaders {
		if h == "*" {
			wildcardHeaders = true
		}
	}
	maxAge := strconv.Itoa(int(policy.MaxAge.Seconds()))

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""
		if origin == "" {
			c.Next()
			return
		}
		if !policy.AllowsOrigin(origin) {
			if preflight {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Add("Vary", "Origin")
		if policy.AllowsAnyOrigin() && !policy.AllowCredentials {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
		}
		if policy.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		if !preflight {
			c.Next()
			return
		}
		h.Set("Access-Control-Allow-Methods", methods)
		if wildcardHeaders {
			if requested := c.GetHeader("Access-Control-Request-Headers"); requested != "" {
				h.Set("Access-Control-Allow-Headers", requested)
			}
		} else {
			h.Set("Access-Control-Allow-Headers", headers)
		}
		if policy.MaxAge > 0 {
			h.Set("Access-Control-Max-Age", maxAge)
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}
