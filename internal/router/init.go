package router

import (
	"net/http"

	"github.com/oksasatya/go-auth-service/internal/container"
	handlers "github.com/oksasatya/go-auth-service/internal/interface/http"
	"github.com/oksasatya/go-auth-service/internal/interface/middleware"
	"github.com/oksasatya/go-auth-service/internal/router/modules"
)

// InitModules builds handlers from the container and registers them with the router registry.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	auth := middleware.Auth(c.Accounts, c.JWT, c.Logger)
	health := handlers.NewHealthHandler(c.Accounts, c.Logger)

	r.Root(http.MethodGet, "/", health.Root)
	r.Add(
		modules.NewHealthModule(health),
		modules.NewAuthModule(handlers.NewAuthHandler(c.Auth, c.Logger, c.Cookies), auth),
		modules.NewUserModule(handlers.NewUserHandler(c.Auth, c.Logger), auth),
	)
}
