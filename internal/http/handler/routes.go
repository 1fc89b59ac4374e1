package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"partdocs/internal/service"
)

const healthTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db Pinger, docSvc service.DocumentService, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/upload", UploadDocument(docSvc, log))
	app.Get("/document/:part_number", LookupDocument(docSvc, log))
	app.Get("/documents", ListDocuments(docSvc, log))
}

// HealthCheck godoc
// @Summary Readiness probe
// @Description Pings the database.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe godoc
// @Summary Liveness probe
// @Tags health
// @Success 200
// @Router /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// UploadDocument godoc
// @Summary Upload a document for a part number
// @Description Stores the file under documents/{part_number}/{file_name}. A part number can hold one document.
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param part_number query string true "Part number"
// @Param file formData file true "Document"
// @Success 200 {object} service.UploadResult
// @Failure 400 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /upload/ [post]
func UploadDocument(docSvc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		partNumber := c.Query("part_number")
		if partNumber == "" {
			partNumber = c.FormValue("part_number")
		}
		in := service.UploadInput{PartNumber: partNumber}

		// A missing file is reported by the service so validation stays in one place.
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()

			in.FileName = fh.Filename
			in.ContentType = fh.Header.Get("Content-Type")
			in.Size = fh.Size
			in.Body = f
		}

		res, err := docSvc.Upload(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.Status(fiber.StatusOK).JSON(res)
	}
}

// LookupDocument godoc
// @Summary Resolve a part number into a download link
// @Description The link is a pre-signed GET URL valid for one hour by default.
// @Tags documents
// @Produce json
// @Param part_number path string true "Part number"
// @Success 200 {object} service.DownloadLink
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /document/{part_number} [get]
func LookupDocument(docSvc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		link, err := docSvc.Lookup(c.UserContext(), c.Params("part_number"))
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(link)
	}
}

// ListDocuments godoc
// @Summary List committed documents
// @Tags documents
// @Produce json
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} service.DocumentListResult
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /documents [get]
func ListDocuments(docSvc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := docSvc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(res)
	}
}
