package server

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the id of a request in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID tags every request with an id. A well-formed incoming id is
// kept so a proxy's id can be followed through the logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// logFormat is gin's access log line with the request id appended.
func logFormat(p gin.LogFormatterParams) string {
	id, _ := p.Keys[requestIDKey].(string)
	line := fmt.Sprintf("[surveydash] %s | %3d | %13v | %15s | %-7s %#v | %s\n",
		p.TimeStamp.Format(time.RFC3339),
		p.StatusCode,
		p.Latency,
		p.ClientIP,
		p.Method,
		p.Path,
		id,
	)
	if p.ErrorMessage != "" {
		line += p.ErrorMessage
	}
	return line
}
