package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

// channelKey keeps the context key private so it cannot collide.
type channelKey struct{}

var ChannelContextKey = channelKey{}

// deriveChannelFromAPIKey guesses the calling channel from the API key shape.
func deriveChannelFromAPIKey(key string) string {
	switch {
	case strings.HasPrefix(key, "pos_"):
		return "pos"
	case strings.HasPrefix(key, "web_"):
		return "online"
	case strings.HasPrefix(key, "partner_"):
		return "partner"
	default:
		return "api"
	}
}

// Channel tags the request context with the originating channel so activity
// records can attribute writes to pos/online/partner callers.
func Channel() gin.HandlerFunc {
	return func(c *gin.Context) {
		channel := "api"
		if key := c.GetHeader("x-api-key"); key != "" {
			channel = deriveChannelFromAPIKey(key)
		}
		ctx := context.WithValue(c.Request.Context(), ChannelContextKey, channel)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetChannel returns the current channel string (default "api").
func GetChannel(ctx context.Context) string {
	ch, ok := ctx.Value(ChannelContextKey).(string)
	if !ok {
		return "api"
	}
	return ch
}
