package routes

import (
	"lab-scheduler/internal/delivery/http/handler"

	"github.com/gofiber/fiber/v3"
)

// Handler is any handler that mounts its own group.
type Handler interface {
	RegisterRoutes(r fiber.Router)
}

type Registry struct {
	health *handler.HealthHandler
	v1     []Handler
}

func NewRegistry(health *handler.HealthHandler, v1 ...Handler) *Registry {
	return &Registry{health: health, v1: v1}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.registerHealth(app)
	r.registerAPI(app)
}

func (r *Registry) registerHealth(app *fiber.App) {
	if r.health == nil {
		return
	}
	r.health.RegisterRoutes(app)
}

func (r *Registry) registerAPI(app *fiber.App) {
	api := app.Group("/api")
	RegisterV1(api.Group("/v1"), r.v1...)
}

func RegisterV1(r fiber.Router, handlers ...Handler) {
	if r == nil {
		return
	}
	for _, h := range handlers {
		if h == nil {
			continue
		}
		h.RegisterRoutes(r)
	}
}
