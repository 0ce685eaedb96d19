// Package httpapi exposes AuthService over HTTP using echo.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 5 * time.Second

// Authenticator is the subset of services.AuthService the handlers call.
type Authenticator interface {
	SignUpLocal(ctx context.Context, email, password string) (*auth.TokenPair, error)
	SignInLocal(ctx context.Context, email, password string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, userID int64, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, userID int64) error
}

// TokenVerifier checks a bearer token of the given kind.
type TokenVerifier interface {
	Verify(token string, kind auth.Kind) (*auth.Claims, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	address string
	svc     Authenticator
	tokens  TokenVerifier
	health  Pinger
	logger  logging.Logger
	e       *echo.Echo
}

func NewServer(address string, l logging.Logger, svc Authenticator, tokens TokenVerifier, health Pinger) *Server {
	s := &Server{
		address: address,
		svc:     svc,
		tokens:  tokens,
		health:  health,
		logger:  l.With("module", "http_server"),
	}
	s.e = s.newEcho()
	return s
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64K"))
	e.Use(s.requestLogger())

	e.GET("/healthz", s.healthz)

	g := e.Group("/auth")
	g.POST("/local/signup", s.signUp)
	g.POST("/local/signin", s.signIn)
	g.POST("/refresh", s.refresh, Guard(s.tokens, auth.KindRefresh))
	g.POST("/logout", s.logout, Guard(s.tokens, auth.KindAccess))

	return e
}

// Handler exposes the routed echo instance, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.e.Listener = listen

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "HTTP shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := s.e.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info(c.Request().Context(), "request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
				"remote_ip", v.RemoteIP,
			)
			return nil
		},
	})
}
