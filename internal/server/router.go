package server

import (
	"errors"
	"sort"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/checkup/checkup/internal/coordinator"
	"github.com/checkup/checkup/internal/provider"
	"github.com/checkup/checkup/internal/render"
)

// AppOptions controls how the Fiber application is assembled. All fields are
// required; tests inject fakes through the same options.
type AppOptions struct {
	Logger      *logrus.Logger
	Coordinator *coordinator.Coordinator
	Providers   map[string]provider.Provider
	Renderer    *render.Renderer
}

const contextKeyRequestID = "_checkup_request_id"

// NewApp builds the Fiber application: one wildcard route per registered
// provider plus the health and index pages.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Coordinator == nil {
		return nil, errors.New("coordinator is required")
	}
	if len(opts.Providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}
	if opts.Renderer == nil {
		return nil, errors.New("renderer is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	handler := &releaseHandler{
		logger:   opts.Logger,
		coord:    opts.Coordinator,
		renderer: opts.Renderer,
	}

	app.Get("/", func(c fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(opts.Renderer.RenderIndex())
	})
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	names := make([]string, 0, len(opts.Providers))
	for name := range opts.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		src := opts.Providers[name]
		app.Get("/"+name+"/*", func(c fiber.Ctx) error {
			return handler.handle(c, src)
		})
	}

	return app, nil
}

// requestIDMiddleware 为每个请求生成 ID 并回写响应头，日志用同一 ID 关联。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
