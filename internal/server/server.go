// Package server contains the HTTP handlers and middleware chain for the portal.
package server

import (
	"context"
	"log"
	"os"
	"time"

	"gigfolio/internal/config"
	"gigfolio/internal/middleware"
	"gigfolio/internal/models"
	"gigfolio/internal/repository"
	"gigfolio/internal/service"
	"gigfolio/internal/session"
	"gigfolio/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config           *config.Config
	db               *gorm.DB
	redis            *redis.Client
	uploads          *storage.Dir
	app              *fiber.App
	promMiddleware   *fiberprometheus.FiberPrometheus
	limiter          *middleware.Limiter
	userRepo         repository.UserRepository
	portfolioRepo    repository.PortfolioRepository
	sessions         session.Store
	authService      *service.AuthService
	userService      *service.UserService
	portfolioService *service.PortfolioService
	quizService      *service.QuizService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil redisClient switches sessions to the in-process store.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	uploads, err := storage.NewDir(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	quiz, err := service.NewQuizService()
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	var sessions session.Store
	if redisClient != nil {
		sessions = session.NewRedisStore(redisClient, ttl)
	} else {
		log.Println("Redis unavailable: sessions are kept in memory and will not survive a restart")
		sessions = session.NewMemoryStore(ttl)
	}

	userRepo := repository.NewUserRepository(db)
	portfolioRepo := repository.NewPortfolioRepository(db)

	return &Server{
		config:           cfg,
		db:               db,
		redis:            redisClient,
		uploads:          uploads,
		promMiddleware:   middleware.InitMetrics("gigfolio"),
		limiter:          middleware.NewLimiter(redisClient, cfg.Env),
		userRepo:         userRepo,
		portfolioRepo:    portfolioRepo,
		sessions:         sessions,
		authService:      service.NewAuthService(userRepo, sessions),
		userService:      service.NewUserService(userRepo),
		portfolioService: service.NewPortfolioService(portfolioRepo, uploads, cfg.UploadNamespaceByUser),
		quizService:      quiz,
	}, nil
}

// NewApp builds a Fiber app with the full middleware chain and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Gigfolio",
		BodyLimit: s.config.UploadMaxSizeMB * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	app.Use(middleware.Tracing(s.config.SessionCookieName))
	app.Use(middleware.RequestContext())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.AccessLog())

	// CORS before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Gigfolio Metrics Dashboard",
	}))

	app.Get("/", s.Index)
	app.Get("/register", s.RegisterForm)
	app.Post("/register", s.limiter.Middleware(middleware.Rule{
		Name: "register", Limit: 5, Window: 10 * time.Minute,
	}), s.Register)
	app.Get("/login", s.LoginForm)
	// Counted per account and address; the global limiter still caps each address.
	app.Post("/login", s.limiter.Middleware(middleware.Rule{
		Name: "login", Limit: 10, Window: 5 * time.Minute, Key: middleware.EmailAndIP("email"),
	}), s.Login)
	app.Get("/logout", s.Logout)

	// Files are served to anyone who knows the name.
	app.Get("/uploads/:filename", s.ServeUpload)

	auth := s.SessionRequired()
	app.Get("/home", auth, s.Home)
	app.Get("/profile", auth, s.GetProfile)
	app.Post("/profile", auth, s.UpdateProfile)
	app.Get("/portfolio", auth, s.GetPortfolio)
	app.Post("/portfolio", auth, s.UploadPortfolioFile)
	app.Get("/test", auth, s.GetQuiz)
	app.Post("/test", auth, s.SubmitQuiz)
}

func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck fails on the database or a missing upload directory; a missing
// Redis degrades to in-memory sessions.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	uploadsStatus := "healthy"
	if info, err := os.Stat(s.uploads.Root()); err != nil || !info.IsDir() {
		uploadsStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	switch {
	case dbStatus == "unhealthy" || redisStatus == "unhealthy" || uploadsStatus == "unhealthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus == "unavailable":
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"uploads":  uploadsStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app and blocks serving on the configured port.
func (s *Server) Start() error {
	s.app = s.NewApp()
	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}

func (s *Server) cookieMaxAge() int {
	return int((time.Duration(s.config.SessionTTLHours) * time.Hour) / time.Second)
}
