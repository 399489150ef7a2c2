package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"guideline-extractor/internal/extractions"
	"guideline-extractor/internal/services/health"
	"guideline-extractor/internal/shared/config"
	"guideline-extractor/internal/shared/metrics"
	"guideline-extractor/internal/shared/server/middleware"
	"guideline-extractor/internal/shared/server/respond"
)

const (
	rateLimitUpload  = "UPLOAD"
	rateLimitDefault = "DEFAULT"
	rateLimitExempt  = "EXEMPT"
)

// RouterDeps holds the handlers mounted by NewRouter.
type RouterDeps struct {
	Config            config.Config
	Health            *health.Service
	ExtractionHandler *extractions.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	r := gin.New()
	if cfg.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = cfg.MaxUploadBytes
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateLimitDefault,
			GroupFor:     rateLimitGroup,
			Rules: map[string]middleware.RateLimitRule{
				rateLimitUpload:  {Rate: cfg.RateLimitUploadRPS, Burst: cfg.RateLimitUploadBurst},
				rateLimitDefault: {Rate: cfg.RateLimitDefaultRPS, Burst: cfg.RateLimitDefaultBurst},
			},
		}),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(cfg.PDFEngine, cfg.ObjectStoreType)
	}
	healthHandler := func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	}
	r.GET("/health", healthHandler)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler)
	if deps.ExtractionHandler != nil {
		deps.ExtractionHandler.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	return r
}

func rateLimitGroup(c *gin.Context) string {
	path := c.Request.URL.Path
	switch {
	case path == "/health" || path == "/metrics" || path == "/api/v1/health":
		return rateLimitExempt
	case c.Request.Method == http.MethodPost && strings.HasPrefix(path, "/api/v1/extractions"):
		return rateLimitUpload
	default:
		return rateLimitDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
