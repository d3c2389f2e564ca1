package helpers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// TokenCookie is the name of the cookie carrying the session token.
const TokenCookie = "token"

// Manager writes the session cookie. Secure is forced on when the request came
// over TLS; SameSite is Strict in production, Lax otherwise, and None only for
// configured cross-site deployments on a secure cookie.
type Manager struct {
	Domain     string
	Secure     bool
	Production bool
	CrossSite  bool
}

func NewCookie(domain string, secure, production, crossSite bool) *Manager {
	return &Manager{Domain: domain, Secure: secure, Production: production, CrossSite: crossSite}
}

func (m *Manager) SetToken(c *gin.Context, token string, exp time.Time) {
	secure := m.secure(c)
	c.SetSameSite(m.sameSite(secure))
	c.SetCookie(TokenCookie, token, maxAgeFrom(exp), "/", m.Domain, secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	secure := m.secure(c)
	c.SetSameSite(m.sameSite(secure))
	c.SetCookie(TokenCookie, "", -1, "/", m.Domain, secure, true)
}

func (m *Manager) secure(c *gin.Context) bool {
	if m.Secure || c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
}

func (m *Manager) sameSite(secure bool) http.SameSite {
	switch {
	case m.CrossSite && secure:
		return http.SameSiteNoneMode
	case m.Production:
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
