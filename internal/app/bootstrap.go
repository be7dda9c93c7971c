package app

import (
	"context"
	"fmt"
	"strings"

	"lab-scheduler/internal/config"
	"lab-scheduler/internal/delivery/http/handler"
	"lab-scheduler/internal/delivery/http/middleware"
	"lab-scheduler/internal/delivery/http/routes"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

func New(c *Container) *App {
	errMw := middleware.NewErrorMiddleware(c.Logger)
	f := fiber.New(fiber.Config{
		AppName:      c.Config.App.AppName,
		ErrorHandler: errMw.ErrorHandler,
	})

	registerGlobalMiddleware(f, c.Logger, errMw)
	registerRoutes(f, c)

	return &App{Fiber: f, Container: c}
}

// Bootstrap wires the container, the HTTP app and the background refresher.
// The returned cleanup stops the refresher and closes connections.
func Bootstrap(cfg config.Config, logger logrus.FieldLogger) (*App, func() error, error) {
	c, err := NewContainer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	app := New(c)

	ctx, cancel := context.WithCancel(context.Background())
	c.Refresher.Start(ctx)

	return app, func() error {
		cancel()
		return c.Close()
	}, nil
}

func registerGlobalMiddleware(app *fiber.App, logger logrus.FieldLogger, errMw *middleware.ErrorMiddleware) {
	if app == nil {
		return
	}

	app.Use(middleware.NewAccessLogMiddleware(logger).Middleware())
	app.Use(errMw.Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	uc := c.Usecases
	var db handler.Pinger
	if c.DB != nil {
		db = c.DB
	}
	registry := routes.NewRegistry(
		handler.NewHealthHandler(db, c.Cache),
		handler.NewWorkOrderHandler(uc.WorkOrders),
		handler.NewTaskHandler(uc.Tasks, uc.Matching),
		handler.NewConsumptionHandler(uc.Consumptions),
		handler.NewReservationHandler(uc.Scheduling),
		handler.NewEquipmentHandler(uc.Scheduling, uc.Capacity),
	)
	registry.Register(app)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
