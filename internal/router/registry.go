package router

import "github.com/gin-gonic/gin"

// Module is a feature slice that mounts its routes under /api.
type Module interface {
	Register(rg *gin.RouterGroup)
}

// Registry collects modules, then mounts them under /api in one go.
type Registry struct {
	Engine  *gin.Engine
	API     *gin.RouterGroup
	modules []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group("/api")}
}

func (r *Registry) Add(mods ...Module) {
	r.modules = append(r.modules, mods...)
}

// Root mounts a handler outside the /api prefix.
func (r *Registry) Root(method, path string, h gin.HandlerFunc) {
	r.Engine.Handle(method, path, h)
}

func (r *Registry) RegisterAll() {
	for _, m := range r.modules {
		m.Register(r.API)
	}
}
