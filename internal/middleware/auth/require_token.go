package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vishaga/online_store/internal/models"
)

const (
	userIDKey = "user_id"
	tokenKey  = "token"
)

type TokenAuth struct {
	DB *gorm.DB
}

// RequireToken authenticates the Bearer token against the tokens table.
// Expiry is checked on every request; a token is never refreshed or
// extended on use.
func (a *TokenAuth) RequireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "token is missing")
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))

		var tok models.Token
		err := a.DB.WithContext(c.Request().Context()).
			Where("token = ? AND expires_at > ?", raw, time.Now()).
			First(&tok).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token is invalid or expired")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		c.Set(userIDKey, tok.UserID)
		c.Set(tokenKey, raw)
		return next(c)
	}
}

func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(userIDKey).(uint)
	return id, ok
}

func TokenString(c echo.Context) (string, bool) {
	tok, ok := c.Get(tokenKey).(string)
	return tok, ok
}
