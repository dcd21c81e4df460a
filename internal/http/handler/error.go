package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"signflow/internal/http/middleware"
	"signflow/internal/service"
	"signflow/internal/signing"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	return middleware.RequestIDFrom(c)
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "NOT_YOUR_TURN", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps service and signing errors onto the error envelope.
// Validation messages are safe to echo; everything else is replaced.
func writeServiceError(c *fiber.Ctx, err error) error {
	var se *signing.SigningError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return writeError(c, fiber.StatusForbidden, "UNAUTHORIZED", "invalid checksum")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "session not found")
	case errors.Is(err, service.ErrArtifactNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "signed document not found")
	case errors.Is(err, service.ErrSessionExists):
		return writeError(c, fiber.StatusConflict, "SESSION_EXISTS", "a session with this uuid already exists")
	case errors.Is(err, signing.ErrNotYourTurn):
		return writeError(c, fiber.StatusForbidden, "NOT_YOUR_TURN", "not your turn to sign")
	case errors.Is(err, signing.ErrRetryable):
		return writeError(c, fiber.StatusConflict, "RETRYABLE_CONFLICT", "session changed concurrently, check status and retry")
	case errors.Is(err, signing.ErrDocumentMissing):
		return writeError(c, fiber.StatusInternalServerError, "DOCUMENT_MISSING", "current document version is missing from storage")
	case errors.As(err, &se):
		return writeError(c, fiber.StatusInternalServerError, "SIGNING_FAILED", "document signing failed")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
