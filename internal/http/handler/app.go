package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"partdocs/docs"
)

// BodyLimit caps multipart upload size.
const BodyLimit = 100 << 20

// NewApp returns the Fiber app used by the server. Paths are unescaped before
// routing so part numbers with spaces or non-ASCII characters resolve.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler(),
		BodyLimit:             BodyLimit,
		UnescapePath:          true,
		DisableStartupMessage: true,
	})
}

// RegisterSwagger serves the API docs under /swagger/*. The host is fixed at
// startup; an empty host makes the UI target whichever host served the page.
func RegisterSwagger(app *fiber.App, host string) {
	docs.SwaggerInfo.Host = host
	docs.SwaggerInfo.Schemes = []string{}
	app.Get("/swagger/*", swagger.HandlerDefault)
}
