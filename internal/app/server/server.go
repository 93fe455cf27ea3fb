package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/LinkRewards/internal/app/service"
	inthttp "github.com/sifan077/LinkRewards/internal/http/handler"
	"github.com/sifan077/LinkRewards/internal/http/middleware"
	"github.com/sifan077/LinkRewards/internal/http/response"
	"github.com/sifan077/LinkRewards/internal/http/util"
	"github.com/sifan077/LinkRewards/internal/i18n"
	"go.uber.org/zap"
)

const (
	UserPrefix  = "/api/user/billinglinks"
	AdminPrefix = "/api/admin/billinglinks"
)

// Dependencies bundles the services and infrastructure the HTTP server needs.
type Dependencies struct {
	Logger       *zap.Logger
	Redis        redis.Cmdable
	EarnService  service.EarnService
	AdminService service.AdminService
	Translator   *i18n.Translator
	// Signer validates identity tokens. Nil trusts identity headers as-is.
	Signer    *util.TokenSigner
	RateLimit middleware.RateLimitConfig
	ReturnURL string
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with the billing links routes.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "linkrewards",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(deps.Logger),
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.CORS())
	s.app.Use(middleware.Identity(s.deps.Signer, s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	if s.deps.Translator != nil {
		s.app.Use(middleware.I18n(s.deps.Translator))
	}
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", inthttp.Health)

	var limited []fiber.Handler
	if s.deps.Redis != nil && s.deps.RateLimit.MaxRequests > 0 {
		limited = append(limited, middleware.RateLimit(s.deps.Redis, s.deps.RateLimit, s.deps.Logger))
	}

	user := s.app.Group(UserPrefix, limited...)
	inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:      s.deps.Logger,
		EarnService: s.deps.EarnService,
	}).Register(user)
	inthttp.NewEarnHandler(inthttp.EarnDeps{
		Logger:      s.deps.Logger,
		EarnService: s.deps.EarnService,
		ReturnURL:   s.deps.ReturnURL,
	}).Register(user)

	admin := s.app.Group(AdminPrefix, append(limited, middleware.RequireAdmin())...)
	inthttp.NewAdminHandler(inthttp.AdminDeps{
		Logger:       s.deps.Logger,
		AdminService: s.deps.AdminService,
	}).Register(admin)
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
			return response.Fail(c, code, "INTERNAL_ERROR", "Internal server error")
		}
		return response.Fail(c, code, "HTTP_ERROR", err.Error())
	}
}
