package http

import (
	"time"

	"github.com/geocoder89/notehub/internal/auth"
	"github.com/geocoder89/notehub/internal/config"
	"github.com/geocoder89/notehub/internal/http/handlers"
	"github.com/geocoder89/notehub/internal/http/middlewares"
	"github.com/geocoder89/notehub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps are the stores and services the router wires into handlers.
type Deps struct {
	Users         handlers.UserStore
	Notes         handlers.NoteStore
	RefreshTokens auth.RefreshTokenStore
	JWT           *auth.Manager

	// optional
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Ping     func() error
}

func NewRouter(cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.OTELServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// health
	h := handlers.NewHealthHandler(deps.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API docs
	r.GET("/swagger", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPIDoc)

	authHandler := handlers.NewAuthHandler(deps.Users, deps.JWT, deps.RefreshTokens)
	notesHandler := handlers.NewNotesHandler(deps.Notes)
	authMW := middlewares.NewAuthMiddleware(deps.JWT)

	limiter := middlewares.NewRateLimiter(cfg.AuthRateLimit, time.Duration(cfg.AuthRateWindowSeconds)*time.Second)

	bodyLimit := middlewares.MaxBodyBytes(cfg.MaxBodyBytes)

	authGroup := r.Group("/auth")
	authGroup.Use(limiter.RateLimiterMiddleware(middlewares.KeyByIP), bodyLimit, middlewares.RequireJSON())
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	notes := r.Group("/notes")
	notes.Use(authMW.RequireAuth())
	if cfg.NotesRateLimit > 0 {
		perUser := middlewares.NewRateLimiter(cfg.NotesRateLimit, time.Minute)
		notes.Use(perUser.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
	}
	notes.Use(bodyLimit, middlewares.RequireJSON())
	{
		notes.GET("", notesHandler.ListNotes)
		notes.POST("", notesHandler.CreateNote)

		notes.GET("/search", notesHandler.SearchNotes)
		notes.GET("/search_by_tag", notesHandler.SearchByTag)
		notes.GET("/search_by_keyword", notesHandler.SearchByKeyword)

		notes.GET("/:id", notesHandler.GetNoteByID)
		notes.PUT("/:id", notesHandler.ReplaceNote)
		notes.PATCH("/:id", notesHandler.PatchNote)
		notes.DELETE("/:id", notesHandler.DeleteNote)
	}

	return r
}
