package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/labstack/echo/v4"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (s *Server) signUp(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	pair, err := s.svc.SignUpLocal(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, pair)
}

func (s *Server) signIn(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	pair, err := s.svc.SignInLocal(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) refresh(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return common.ErrMissingToken
	}

	pair, err := s.svc.Refresh(c.Request().Context(), p.UserID, p.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) logout(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return common.ErrMissingToken
	}

	if err := s.svc.Logout(c.Request().Context(), p.UserID); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) healthz(c echo.Context) error {
	if err := s.health.Ping(c.Request().Context()); err != nil {
		s.logger.Warn(c.Request().Context(), "health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, statusResponse{Status: "unavailable"})
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "ok"})
}
