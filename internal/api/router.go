package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/orrn/ticket-spool/internal/api/handlers"
	"github.com/orrn/ticket-spool/internal/api/middleware"
)

type RouterOptions struct {
	Logger   *zap.Logger
	Auth     *middleware.AuthMiddleware
	Print    *handlers.PrintHandler
	Jobs     *handlers.JobHandler
	Printers *handlers.PrinterHandler
	Labels   *handlers.LabelHandler
	Health   *handlers.HealthHandler
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func NewRouter(opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Auth == nil {
		opts.Auth = middleware.NewAuthMiddleware("", "")
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(opts.Logger), middleware.Recovery(opts.Logger))

	r.GET("/health", opts.Health.Health)
	r.POST("/auth/token", opts.Auth.TokenHandler)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	printGroup := r.Group("/print", opts.Auth.RequireAuth())
	{
		printGroup.POST("", opts.Print.PrintTicket)
		printGroup.POST("/apm", opts.Print.PrintApm)
		printGroup.POST("/barcode", opts.Print.PrintLabel)
	}

	apiGroup := r.Group("/api", opts.Auth.RequireAuth())
	{
		apiGroup.GET("/jobs", opts.Jobs.ListJobs)
		apiGroup.GET("/jobs/stats", opts.Jobs.GetStats)
		apiGroup.GET("/jobs/:id", opts.Jobs.GetJob)
		apiGroup.GET("/printers", opts.Printers.ListPrinters)
		if opts.Labels != nil {
			apiGroup.POST("/labels/preview", opts.Labels.Preview)
			apiGroup.POST("/labels/validate", opts.Labels.ValidateLayout)
		}
	}

	return r
}

type HandlerOptions struct {
	AllowedOrigins []string
	// RateLimit caps requests per client IP per second; zero disables it.
	RateLimit int
}

// Handler wraps the engine with CORS and optional per-IP rate limiting.
func Handler(engine http.Handler, opts HandlerOptions) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := engine
	if opts.RateLimit > 0 {
		h = httprate.LimitByIP(opts.RateLimit, time.Second)(h)
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})(h)
}
