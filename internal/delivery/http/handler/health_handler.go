package handler

import (
	"context"
	"time"

	"lab-scheduler/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type cacheProbe interface {
	Pinger
	Enabled() bool
}

type HealthHandler struct {
	db    Pinger
	cache cacheProbe
}

type healthResponse struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// NewHealthHandler accepts nil dependencies; the in-memory store has no
// database to ping.
func NewHealthHandler(db Pinger, cache cacheProbe) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

func (h *HealthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/health", h.Check)
}

// Check fails only when the database is down. A missing cache degrades the
// service but does not take it out of rotation.
func (h *HealthHandler) Check(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	res := healthResponse{Database: "none", Cache: "disabled"}
	healthy := true

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			res.Database = "down"
			healthy = false
		} else {
			res.Database = "up"
		}
	}

	if h.cache != nil && h.cache.Enabled() {
		if err := h.cache.Ping(ctx); err != nil {
			res.Cache = "down"
		} else {
			res.Cache = "up"
		}
	}

	if !healthy {
		return response.Error(c, fiber.StatusServiceUnavailable, response.MessageServiceUnavailable, res)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}
