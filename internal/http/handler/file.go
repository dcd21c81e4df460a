package handler

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"signflow/internal/service"
)

type signFileResponse struct {
	Message     string `json:"message"`
	SignedFile  string `json:"signed_file"`
	DownloadURL string `json:"download_url"`
}

// SignFile signs a single PDF with the service identity.
// @Summary Sign one PDF
// @Tags sign
// @Accept mpfd
// @Produce json
// @Param myfile formData file true "PDF document"
// @Param department formData string false "Department"
// @Param document_type formData string false "Document type"
// @Param request_id formData string false "Caller request id"
// @Success 200 {object} signFileResponse
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /sign/file [post]
func SignFile(svc service.FileSigningService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("myfile")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "myfile is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		rid := c.FormValue("request_id")
		if rid == "" {
			rid = requestIDFromCtx(c)
		}

		res, err := svc.SignFile(c.UserContext(), service.FileSignInput{
			Filename:     fh.Filename,
			Document:     f,
			Department:   c.FormValue("department"),
			DocumentType: c.FormValue("document_type"),
			RequestID:    rid,
		})
		if err != nil {
			return writeServiceError(c, err)
		}

		return c.JSON(signFileResponse{
			Message:     "File signed successfully",
			SignedFile:  res.Filename,
			DownloadURL: c.BaseURL() + "/download/" + url.PathEscape(res.Filename),
		})
	}
}

// DownloadSigned streams a file produced by SignFile.
// @Summary Download a signed file
// @Tags sign
// @Produce application/pdf
// @Param filename path string true "Signed file name"
// @Success 200 {file} file
// @Failure 404 {object} errorPayload
// @Router /download/{filename} [get]
func DownloadSigned(svc service.FileSigningService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := url.PathUnescape(c.Params("filename"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FILENAME", "invalid filename")
		}
		rc, info, err := svc.Download(c.UserContext(), name)
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Attachment(name)
		return c.SendStream(rc, int(info.Size))
	}
}
