// Package logging provides the process-wide logrus setup for steamlink and the
// Gin middleware used by the loopback callback listener.
package logging

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/steamlink/steamlink/internal/util"
	log "github.com/sirupsen/logrus"
)

// GinLogrusLogger returns a Gin middleware handler that logs each callback request
// using logrus. Sensitive query parameters are masked and the line is tagged with the
// login attempt carried by the request context.
//
// Output format: [2026-10-15 20:14:10] [a1b2c3d4] [info ] 200 |      1.559s |       127.0.0.1 | GET     "/auth?..."
func GinLogrusLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := util.MaskSensitiveQuery(c.Request.URL.RawQuery)

		attemptID := GetAttemptID(c.Request.Context())
		if attemptID != "" {
			SetGinAttemptID(c, attemptID)
		}

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		latency := time.Since(start)
		if latency > time.Minute {
			latency = latency.Truncate(time.Second)
		} else {
			latency = latency.Truncate(time.Millisecond)
		}

		statusCode := c.Writer.Status()
		logLine := fmt.Sprintf("%3d | %13v | %15s | %-7s \"%s\"", statusCode, latency, c.ClientIP(), c.Request.Method, path)
		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			logLine = logLine + " | " + errorMessage
		}

		entry := log.NewEntry(log.StandardLogger())
		if attemptID != "" {
			entry = entry.WithField(AttemptIDField, attemptID)
		}
		switch {
		case statusCode >= http.StatusInternalServerError:
			entry.Error(logLine)
		case statusCode >= http.StatusBadRequest:
			entry.Warn(logLine)
		default:
			entry.Info(logLine)
		}
	}
}

// GinLogrusRecovery returns a Gin middleware handler that recovers from panics and logs
// them using logrus. When a panic occurs, it captures the panic value, stack trace,
// and request path, calls onPanic when given, and answers 500 unless onPanic already
// wrote a response.
func GinLogrusRecovery(onPanic ...func(c *gin.Context, recovered any)) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
			// Let net/http handle ErrAbortHandler so the connection is aborted without noisy stack logs.
			panic(http.ErrAbortHandler)
		}

		log.WithFields(log.Fields{
			"panic":        recovered,
			"stack":        string(debug.Stack()),
			"path":         c.Request.URL.Path,
			AttemptIDField: GetAttemptID(c.Request.Context()),
		}).Error("recovered from panic")

		for _, fn := range onPanic {
			if fn != nil {
				fn(c, recovered)
			}
		}
		if !c.Writer.Written() {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Abort()
	})
}
