package httpapi

import (
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/labstack/echo/v4"
)

// Guard admits a request only if it carries a valid bearer token of the
// given kind. The verified identity is stored in the request context and
// can be read back with auth.PrincipalFromContext.
func Guard(tokens TokenVerifier, kind auth.Kind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(common.AuthorizationHeaderName))
			if !ok {
				return common.ErrMissingToken
			}

			claims, err := tokens.Verify(token, kind)
			if err != nil {
				return err
			}
			id, err := claims.UserID()
			if err != nil {
				return err
			}

			p := &auth.Principal{UserID: id, Email: claims.Email}
			if kind == auth.KindRefresh {
				p.RefreshToken = token
			}

			ctx := auth.WithPrincipal(c.Request().Context(), p)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func bearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
