package logging

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// AttemptIDField is the log field carrying the login attempt id.
const AttemptIDField = "attempt_id"

// attemptIDKey is the context key for storing/retrieving attempt IDs.
type attemptIDKey struct{}

// ginAttemptIDKey is the Gin context key for attempt IDs.
const ginAttemptIDKey = "__attempt_id__"

// NewAttemptID creates a new 8-character hex attempt ID.
func NewAttemptID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// WithAttemptID returns a new context with the attempt ID attached.
func WithAttemptID(ctx context.Context, attemptID string) context.Context {
	return context.WithValue(ctx, attemptIDKey{}, attemptID)
}

// GetAttemptID retrieves the attempt ID from the context.
// Returns empty string if not found.
func GetAttemptID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(attemptIDKey{}).(string); ok {
		return id
	}
	return ""
}

// SetGinAttemptID stores the attempt ID in the Gin context.
func SetGinAttemptID(c *gin.Context, attemptID string) {
	if c != nil {
		c.Set(ginAttemptIDKey, attemptID)
	}
}

// GetGinAttemptID retrieves the attempt ID from the Gin context.
func GetGinAttemptID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if id, exists := c.Get(ginAttemptIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// FromContext returns a log entry tagged with the attempt ID carried by ctx.
func FromContext(ctx context.Context) *log.Entry {
	if id := GetAttemptID(ctx); id != "" {
		return log.WithField(AttemptIDField, id)
	}
	return log.NewEntry(log.StandardLogger())
}
