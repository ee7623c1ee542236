package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/videoguard-backend/internal/pkg/ctxutil"
)

const (
	headerTraceID      = "X-Trace-Id"
	headerRequestID    = "X-Request-Id"
	headerCloudTrace   = "X-Cloud-Trace-Context"
	headerCloudTaskRef = "X-CloudTasks-TaskName"
)

// AttachTraceContext stores trace and request ids on the request context and echoes them back.
// Push deliveries from Cloud Tasks reuse the task name as request id so redeliveries correlate.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := firstHeader(c, headerRequestID, headerCloudTaskRef)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		traceID := resolveTraceID(c)

		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

func resolveTraceID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(headerTraceID)); id != "" {
		return id
	}
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	// TRACE_ID/SPAN_ID;o=OPTIONS
	if raw := strings.TrimSpace(c.GetHeader(headerCloudTrace)); raw != "" {
		id, _, _ := strings.Cut(raw, "/")
		if id != "" {
			return id
		}
	}
	return uuid.New().String()
}

func firstHeader(c *gin.Context, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(c.GetHeader(n)); v != "" {
			return v
		}
	}
	return ""
}
