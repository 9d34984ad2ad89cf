package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bekicr/universal-clinic/internal/config"
	"github.com/bekicr/universal-clinic/internal/handlers"
	"github.com/bekicr/universal-clinic/internal/middleware"
	"github.com/bekicr/universal-clinic/internal/models"
)

// Server wraps an http.Server with the clinic routes.
type Server struct {
	inner *http.Server
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(cfg config.Config, h *handlers.Handler, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
	)
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.MaxMultipartMemory = cfg.UploadMaxBytes

	authenticate := middleware.AuthMiddleware(h.Tokens, h.Store, logger)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	r.GET("/", h.Root)
	r.Static("/uploads", cfg.UploadDir)

	api := r.Group("/api")
	api.GET("/health", h.Health)

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", h.RegisterUser)
		authRoutes.POST("/login", h.Login)
		authRoutes.GET("/me", authenticate, h.GetCurrentUser)
		authRoutes.PUT("/profile", authenticate, h.UpdateCurrentUser)
	}

	doctorRoutes := api.Group("/doctors")
	{
		doctorRoutes.GET("", h.ListDoctors)
		doctorRoutes.POST("/register", h.RegisterDoctor)
		doctorRoutes.GET("/profile/me", authenticate, middleware.RequireRole(models.RoleDoctor), h.GetDoctorProfile)
		doctorRoutes.GET("/admin/pending", authenticate, adminOnly, h.ListPendingDoctors)
		doctorRoutes.PUT("/admin/:id/status", authenticate, adminOnly, h.UpdateDoctorStatus)
		doctorRoutes.GET("/:id", h.GetDoctor)
		doctorRoutes.DELETE("/:id", authenticate, adminOnly, h.DeleteDoctor)
	}

	appointmentRoutes := api.Group("/appointments", authenticate)
	{
		appointmentRoutes.GET("", h.GetAppointments)
		appointmentRoutes.POST("", h.CreateAppointment)
		appointmentRoutes.GET("/:id", h.GetAppointment)
		appointmentRoutes.PUT("/:id", h.UpdateAppointment)
		appointmentRoutes.DELETE("/:id", h.DeleteAppointment)
	}

	r.NoRoute(h.NotFound)
	return r
}

func New(cfg config.Config, h *handlers.Handler, logger zerolog.Logger) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           NewRouter(cfg, h, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return &Server{inner: httpServer}
}

// Start blocks serving HTTP traffic until Shutdown is called.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.inner.Addr
}
