package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/pkg/response"
	"github.com/oksasatya/go-auth-service/pkg/validation"
)

const (
	errValidation         = "validation_error"
	errConflict           = "conflict_error"
	errNotFound           = "not_found"
	errInvalidCredentials = "invalid_credentials"
	errInvalidOTP         = "invalid_otp"
	errExpiredOTP         = "expired_otp"
	errAlreadyVerified    = "already_verified"
	errServer             = "server_error"
)

var errorTable = []struct {
	err       error
	status    int
	errorType string
}{
	{application.ErrValidation, http.StatusBadRequest, errValidation},
	{application.ErrEmailTaken, http.StatusBadRequest, errConflict},
	{application.ErrAccountNotFound, http.StatusNotFound, errNotFound},
	{application.ErrInvalidCredentials, http.StatusUnauthorized, errInvalidCredentials},
	{application.ErrInvalidOTP, http.StatusBadRequest, errInvalidOTP},
	{application.ErrExpiredOTP, http.StatusBadRequest, errExpiredOTP},
	{application.ErrAlreadyVerified, http.StatusBadRequest, errAlreadyVerified},
}

// fail maps a service error onto the response envelope. Unclassified errors
// are logged with the request id and answered with a generic 500.
func fail(c *gin.Context, logger *logrus.Logger, err error) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			response.Error[any](c, e.status, e.errorType, err.Error(), nil)
			return
		}
	}
	logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"path":       c.FullPath(),
	}).Error("request failed")
	response.Error[any](c, http.StatusInternalServerError, errServer, "internal server error", nil)
}

func badPayload(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, errValidation, "invalid payload", validation.ToDetails(err))
}
