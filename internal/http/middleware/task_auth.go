package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/videoguard-backend/internal/http/response"
)

// RequireTaskToken guards the push delivery endpoint with a shared bearer token. An empty
// token leaves the endpoint open, which is only meant for local runs.
func RequireTaskToken(token string) gin.HandlerFunc {
	want := []byte(strings.TrimSpace(token))
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}
		got := []byte(bearerToken(c))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", "invalid task token")
			return
		}
		c.Next()
	}
}
