package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger writes one entry per request, keyed by the matched route.
// Errors attached with c.Error are included.
func Logger(logger *logrus.Logger) gin.HandlerFunc {
	log := logger.WithField("module", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := logrus.Fields{
			"route":    route,
			"path":     c.Request.URL.Path,
			"method":   c.Request.Method,
			"status":   status,
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		}
		if id := c.Param("shortId"); id != "" {
			fields["shortId"] = id
		}
		entry := log.WithFields(fields)
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			entry = entry.WithField("error", errs.Last().Error())
		}

		msg := c.Request.Method + " " + route
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error(msg)
		case status >= http.StatusBadRequest:
			entry.Warn(msg)
		default:
			entry.Info(msg)
		}
	}
}
