package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	repo "github.com/oksasatya/go-auth-service/internal/domain/repository"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
	"github.com/oksasatya/go-auth-service/pkg/response"
)

const (
	CtxUserIDKey  = "userID"
	CtxAccountKey = "account"

	errUnauthorized = "unauthorized"
)

// Auth validates the session cookie and resolves the account it names.
// On success it sets userID and account (entity.AccountSummary) in the Gin context.
func Auth(accounts repo.AccountRepository, jwt *helpers.JWTManager, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(helpers.TokenCookie)
		if err != nil || token == "" {
			response.Error[any](c, http.StatusUnauthorized, errUnauthorized, "not authorized - token missing", nil)
			return
		}

		claims, err := jwt.Parse(token)
		if errors.Is(err, helpers.ErrTokenExpired) {
			response.Error[any](c, http.StatusUnauthorized, errUnauthorized, "token expired", nil)
			return
		}
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, errUnauthorized, "invalid token", nil)
			return
		}

		a, err := accounts.GetByID(c.Request.Context(), claims.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			response.Error[any](c, http.StatusUnauthorized, errUnauthorized, "user not found", nil)
			return
		}
		if err != nil {
			logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("session lookup failed")
			response.Error[any](c, http.StatusInternalServerError, "server_error", "internal server error", nil)
			return
		}

		c.Set(CtxUserIDKey, a.ID)
		c.Set(CtxAccountKey, a.Summary())
		c.Next()
	}
}
