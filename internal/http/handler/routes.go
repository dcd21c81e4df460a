package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"signflow/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers translate transport to service calls and carry no business logic.
func RegisterRoutes(app *fiber.App, db *sql.DB, sessions service.SessionService, files service.FileSigningService) {
	app.Get("/", Root())
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	ms := app.Group("/multi-sign")
	ms.Post("/upload", UploadSession(sessions))
	// GET kept for email-link clients
	ms.Get("/sign/:uuid/:email", SignStep(sessions))
	ms.Post("/sign/:uuid/:email", SignStep(sessions))
	ms.Get("/download/:uuid", DownloadLatest(sessions))
	ms.Get("/status/:uuid", SessionStatus(sessions))
	ms.Get("/audit/:uuid", SessionAudit(sessions))

	app.Post("/sign/file", SignFile(files))
	app.Get("/download/:filename", DownloadSigned(files))
}
