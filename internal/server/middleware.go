package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	agentdomain "github.com/openhaul/tripbook/internal/agent/domain"
	"github.com/openhaul/tripbook/internal/auditctx"
	tripdomain "github.com/openhaul/tripbook/internal/trip/domain"
	"go.uber.org/zap"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
	HeaderRequestID = "X-Request-ID"
)

// RequestLogger emits one structured line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	l := log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// AuditContext threads the client IP and a request id into the request
// context so audit records pick them up without handler involvement.
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		ctx := auditctx.WithIPAddress(c.Request.Context(), c.ClientIP())
		ctx = auditctx.WithRequestID(ctx, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// actorFromHeaders resolves who is calling from the identity headers. The
// id is required for mutations; the role defaults to agent when absent.
func actorFromHeaders(c *gin.Context) (tripdomain.Actor, error) {
	rawID := strings.TrimSpace(c.GetHeader(HeaderActorID))
	if rawID == "" {
		return tripdomain.Actor{}, newValidationError("actor_id", "missing_actor_id", "missing "+HeaderActorID+" header")
	}
	id, err := snowflake.ParseString(rawID)
	if err != nil || id == 0 {
		return tripdomain.Actor{}, newValidationError("actor_id", "invalid_actor_id", "invalid "+HeaderActorID+" header")
	}

	rawRole := strings.TrimSpace(c.GetHeader(HeaderActorRole))
	if rawRole == "" {
		return tripdomain.Actor{ID: id, Role: agentdomain.RoleAgent}, nil
	}
	role, err := agentdomain.ParseRole(rawRole)
	if err != nil {
		return tripdomain.Actor{}, newValidationError("actor_role", "invalid_actor_role", "invalid "+HeaderActorRole+" header")
	}
	return tripdomain.Actor{ID: id, Role: role}, nil
}
