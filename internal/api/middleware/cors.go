package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// DefaultAllowOrigins lets any origin call the bridge
var DefaultAllowOrigins = []string{"*"}

// CORS lets the host webview call the bridge from its own origin. An empty
// list or a "*" entry allows every origin; other entries may carry a single
// wildcard such as "http://localhost:*".
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AddAllowHeaders("Accept", "Cache-Control", "X-Requested-With", RequestIDHeader)
	cfg.AddExposeHeaders(RequestIDHeader)
	cfg.MaxAge = 12 * time.Hour

	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowWildcard = true
	}
	return cors.New(cfg)
}
