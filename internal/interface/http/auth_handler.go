package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/internal/interface/middleware"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
	"github.com/oksasatya/go-auth-service/pkg/response"
)

type AuthHandler struct {
	Svc     *application.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cookies *helpers.Manager) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: cookies}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type verifyEmailRequest struct {
	OTP string `json:"otp" binding:"required"`
}

type sendResetOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required"`
	Password    string `json:"password" binding:"required_without=NewPassword,max=72"`
	NewPassword string `json:"newPassword" binding:"max=72"`
}

// Register POST /api/auth/register {name, email, password}
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	h.Cookies.SetToken(c, res.Token, res.ExpiresAt)
	response.Success(c, http.StatusCreated, gin.H{"token": res.Token, "user": res.Account}, "registered successfully", gin.H{"expires_at": res.ExpiresAt})
}

// Login POST /api/auth/login {email, password}
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, application.ErrAccountNotFound) || errors.Is(err, application.ErrInvalidCredentials) {
		response.Error[any](c, http.StatusUnauthorized, errInvalidCredentials, application.ErrInvalidCredentials.Error(), nil)
		return
	}
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	h.Cookies.SetToken(c, res.Token, res.ExpiresAt)
	response.Success(c, http.StatusOK, res.Account, "login successful", gin.H{"expires_at": res.ExpiresAt})
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

// SendVerifyOTP POST /api/auth/send-verify-otp (auth required)
func (h *AuthHandler) SendVerifyOTP(c *gin.Context) {
	exp, err := h.Svc.RequestEmailVerification(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "verification OTP sent to email", gin.H{"expires_at": exp})
}

// VerifyEmail POST /api/auth/verify-email {otp} (auth required)
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	if err := h.Svc.ConfirmEmailVerification(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), req.OTP); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"isAccountVerified": true}, "email verified successfully", nil)
}

// IsVerified GET /api/auth/is-verified (auth required)
func (h *AuthHandler) IsVerified(c *gin.Context) {
	ok, err := h.Svc.IsVerified(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"isAccountVerified": ok}, "verification status", nil)
}

// Me GET /api/auth/me (auth required)
func (h *AuthHandler) Me(c *gin.Context) {
	acc, err := h.Svc.GetCurrentAccount(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, acc, "current user", nil)
}

// SendResetOTP POST /api/auth/send-reset-otp {email}
func (h *AuthHandler) SendResetOTP(c *gin.Context) {
	var req sendResetOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	exp, err := h.Svc.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "reset OTP sent to email", gin.H{"expires_at": exp})
}

// ResetPassword POST /api/auth/reset-password {email, otp, password|newPassword}
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	password := req.Password
	if password == "" {
		password = req.NewPassword
	}
	if err := h.Svc.ConfirmPasswordReset(c.Request.Context(), req.Email, req.OTP, password); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "password has been reset successfully", nil)
}
