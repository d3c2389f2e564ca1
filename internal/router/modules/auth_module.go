package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-auth-service/internal/interface/http"
)

// AuthModule wires account lifecycle handlers under /auth.
// Public: register, login, logout, send-reset-otp, reset-password
// Protected: send-verify-otp, verify-email, is-verified, me
type AuthModule struct {
	Handler *handlers.AuthHandler
	Auth    gin.HandlerFunc
}

func NewAuthModule(h *handlers.AuthHandler, auth gin.HandlerFunc) *AuthModule {
	return &AuthModule{Handler: h, Auth: auth}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/auth")
	g.POST("/register", m.Handler.Register)
	g.POST("/login", m.Handler.Login)
	g.POST("/logout", m.Handler.Logout)
	g.POST("/send-reset-otp", m.Handler.SendResetOTP)
	g.POST("/reset-password", m.Handler.ResetPassword)

	protected := g.Group("/")
	protected.Use(m.Auth)
	{
		protected.POST("/send-verify-otp", m.Handler.SendVerifyOTP)
		protected.POST("/verify-email", m.Handler.VerifyEmail)
		protected.GET("/is-verified", m.Handler.IsVerified)
		protected.GET("/me", m.Handler.Me)
	}
}
