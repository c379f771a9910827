package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// corsMethods is everything the scheduling API serves.
var corsMethods = strings.Join([]string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}, ", ")

const corsExposeHeaders = "Content-Length, X-Request-ID, X-API-Version"

// CORSConfig controls which calendar front ends may call the API.
type CORSConfig struct {
	AllowOrigins     []string
	AllowHeaders     []string
	AllowCredentials bool
	MaxAge           time.Duration
}

func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:       24 * time.Hour,
	}
}

// allowOrigin returns the value for Access-Control-Allow-Origin. A wildcard
// is echoed back as the origin when credentials are allowed.
func (cfg CORSConfig) allowOrigin(origin string) (string, bool) {
	for _, o := range cfg.AllowOrigins {
		switch {
		case o == "*" && cfg.AllowCredentials:
			return origin, true
		case o == "*":
			return "*", true
		case strings.EqualFold(o, origin):
			return origin, true
		}
	}
	return "", false
}

// CORS answers preflight requests and decorates cross-origin responses.
// Requests from origins that are not listed get no CORS headers, and their
// preflights are refused.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge / time.Second))

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		c.Writer.Header().Add("Vary", "Origin")

		preflight := c.Request.Method == http.MethodOptions &&
			c.GetHeader("Access-Control-Request-Method") != ""

		allowed, ok := cfg.allowOrigin(origin)
		if !ok {
			if preflight {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", allowed)
		c.Header("Access-Control-Expose-Headers", corsExposeHeaders)
		if cfg.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if preflight {
			c.Header("Access-Control-Allow-Methods", corsMethods)
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
