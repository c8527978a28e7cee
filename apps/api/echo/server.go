package echoapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/resource"
	"github.com/trezcool/shule/core/user"
)

type (
	Options struct {
		Address        string
		AppName        string
		SecretKey      string
		TokenTTL       time.Duration
		Debug          bool
		TestMode       bool
		DisableReqLogs bool

		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		// Sessions is the shared store holding every client's session slots.
		Sessions    core.KVStore
		UserSvc     *user.Service
		ResourceSvc *resource.Service

		// HealthCheck reports the readiness of the backing stores. Optional.
		HealthCheck func(ctx context.Context) error
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts    *Options
		app     *echo.Echo
		metrics *metrics
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:    opts,
		app:     echo.New(),
		metrics: newMetrics(strings.ToLower(opts.AppName)),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(s.metrics.middleware)
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", s.home)
	s.app.GET("/metrics", s.metrics.handler())

	tokens := tokenizer{key: []byte(s.opts.SecretKey), issuer: s.opts.AppName, ttl: s.opts.TokenTTL}
	api := s.app.Group("/api", clientMiddleware(tokens, s.opts.Sessions, s.opts.UserSvc))
	api.GET("/health", s.health)

	registerUserAPI(api, &userApi{
		svc:        s.opts.UserSvc,
		sessions:   s.opts.Sessions,
		tokens:     tokens,
		validate:   s.opts.Validate,
		translator: s.opts.Translator,
	})
	registerResourceAPI(api, &resourceApi{svc: s.opts.ResourceSvc})
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.AppName+" API!")
}

func (s *server) health(ctx echo.Context) error {
	if s.opts.HealthCheck != nil {
		if err := s.opts.HealthCheck(ctx.Request().Context()); err != nil {
			s.opts.Logger.Warn("health check failed", err)
			return ctx.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		}
	}
	return ctx.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
