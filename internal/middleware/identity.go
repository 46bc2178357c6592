package middleware

import "github.com/gin-gonic/gin"

const actorHeader = "X-Actor-ID"

// GetActorID returns the caller identity for audit fields. Callers identify
// themselves with the X-Actor-ID header; absent that, writes are attributed
// to "anonymous".
func GetActorID(c *gin.Context) string {
	if actor := c.GetHeader(actorHeader); actor != "" {
		return actor
	}
	return "anonymous"
}
