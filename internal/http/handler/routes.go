package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dataendpoint/internal/service"
)

// downloadExpiry is how long a pre-signed report link stays valid.
const downloadExpiry = 15 * time.Minute

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps carries what the routes need.
type Deps struct {
	// DB is nil when history is not configured.
	DB       Pinger
	Reports  service.ReportService
	Run      service.CreateOptions
	Gatherer prometheus.Gatherer
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", Metrics(d.Gatherer))
	}

	app.Get("/reports", ListReports(d.Reports))
	app.Post("/reports", CreateReport(d.Reports, d.Run))
	app.Get("/reports/latest", LatestReport(d.Reports))
	app.Get("/reports/:id", GetReport(d.Reports))
	app.Get("/reports/:id/download", DownloadReport(d.Reports))
}

// HealthCheck pings the database when one is configured.
//
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db == nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy", "database": "disabled"})
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always answers 200.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// Metrics exposes g in the Prometheus text format.
func Metrics(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// ListReports returns stored runs, newest first.
//
// @Summary List report runs
// @Tags reports
// @Produce json
// @Param limit query int false "page size" default(10)
// @Param offset query int false "offset" default(0)
// @Success 200 {object} service.ReportListResult
// @Router /reports [get]
func ListReports(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// CreateReport runs a report with the server's configured source and output.
//
// @Summary Run a report now
// @Tags reports
// @Produce json
// @Success 201 {object} model.ReportRun
// @Failure 409 {object} errorPayload
// @Router /reports [post]
func CreateReport(svc service.ReportService, opts service.CreateOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		run, err := svc.Create(c.UserContext(), opts)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(run)
	}
}

// LatestReport returns the newest stored run.
//
// @Summary Latest report run
// @Tags reports
// @Produce json
// @Success 200 {object} model.ReportRun
// @Failure 404 {object} errorPayload
// @Router /reports/latest [get]
func LatestReport(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		run, err := svc.Latest(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(run)
	}
}

// GetReport returns one stored run. The id outlives the request in the
// service cache, so it is copied out of fiber's reusable buffer.
//
// @Summary Report run by ID
// @Tags reports
// @Produce json
// @Param id path string true "run ID (UUID)"
// @Success 200 {object} model.ReportRun
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /reports/{id} [get]
func GetReport(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := utils.CopyString(c.Params("id"))
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		run, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(run)
	}
}

// DownloadReport redirects to a pre-signed URL of the published document.
//
// @Summary Download a published report
// @Tags reports
// @Param id path string true "run ID (UUID)"
// @Success 307
// @Failure 404 {object} errorPayload
// @Router /reports/{id}/download [get]
func DownloadReport(svc service.ReportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := utils.CopyString(c.Params("id"))
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		u, err := svc.DownloadURL(c.UserContext(), id, downloadExpiry)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Redirect(u, fiber.StatusTemporaryRedirect)
	}
}
