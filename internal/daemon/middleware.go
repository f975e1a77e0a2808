package daemon

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// promhttp negotiates its own compression
var uncompressedPaths = []string{"/metrics", "/healthz"}

// dashboards on other origins may read the status endpoints, nothing else
func readOnlyCORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Accept", "Content-Type"},
		MaxAge:          12 * time.Hour,
	})
}

func compression() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths(uncompressedPaths))
}

// securityHeaders is the plain-http subset of the usual hardening headers;
// the status server is meant for localhost and never redirects to TLS.
func securityHeaders() gin.HandlerFunc {
	return secure.New(secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		IENoOpen:           true,
		ReferrerPolicy:     "no-referrer",
	})
}

func rateLimit(perSecond int64) gin.HandlerFunc {
	rl := limiter.New(memory.NewStore(), limiter.Rate{
		Period: time.Second,
		Limit:  perSecond,
	})
	return mgin.NewMiddleware(rl)
}
