package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"signflow/internal/model"
	"signflow/internal/service"
	"signflow/internal/signing"
)

type messageResponse struct {
	Message string `json:"message"`
}

type uploadResponse struct {
	Message         string `json:"message"`
	UUID            string `json:"uuid"`
	NextSignerEmail string `json:"next_signer_email"`
	DownloadURL     string `json:"download_url"`
}

type signResponse struct {
	Message     string  `json:"message"`
	SignedBy    string  `json:"signed_by,omitempty"`
	NextSigner  *string `json:"next_signer"`
	Completed   bool    `json:"completed"`
	DownloadURL string  `json:"download_url,omitempty"`
}

type eventsResponse struct {
	Items []model.SigningEvent `json:"data"`
	Total int                  `json:"total"`
}

func downloadURL(c *fiber.Ctx, id string) string {
	return c.BaseURL() + "/multi-sign/download/" + url.PathEscape(id)
}

// UploadSession opens a multi-signer session.
// @Summary Upload a document for sequential signing
// @Tags multi-sign
// @Accept mpfd
// @Produce json
// @Param myfile formData file true "PDF document"
// @Param uuid formData string true "Session id"
// @Param cs formData string true "hex(sha256(API_KEY + uuid))"
// @Param initiator_workid formData string false "Initiator work id"
// @Param initiator_work_dept formData string false "Initiator department"
// @Param workflow_id formData string false "Workflow id"
// @Param signerlist formData string true "JSON array of {signer_workid, signer_name, signer_email, locations:[{page,x,y}]}"
// @Success 201 {object} uploadResponse
// @Failure 400 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /multi-sign/upload [post]
func UploadSession(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("myfile")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "myfile is required")
		}

		var signers []model.SignerTurn
		raw := strings.TrimSpace(c.FormValue("signerlist"))
		if raw == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_SIGNERLIST", "signerlist is required")
		}
		if err := json.Unmarshal([]byte(raw), &signers); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_SIGNERLIST", "signerlist must be a JSON array of signers")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		sess, err := svc.Create(c.UserContext(), service.CreateSessionInput{
			ID:         c.FormValue("uuid"),
			Checksum:   c.FormValue("cs"),
			Filename:   fh.Filename,
			Document:   f,
			WorkflowID: c.FormValue("workflow_id"),
			Initiator: model.Initiator{
				WorkID:     c.FormValue("initiator_workid"),
				Department: c.FormValue("initiator_work_dept"),
			},
			Signers: signers,
		})
		if err != nil {
			return writeServiceError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(uploadResponse{
			Message:         "File uploaded successfully",
			UUID:            sess.ID,
			NextSignerEmail: sess.NextSignerEmail(),
			DownloadURL:     downloadURL(c, sess.ID),
		})
	}
}

// SignStep applies the signature of the signer whose turn it is.
// @Summary Sign as the current signer
// @Tags multi-sign
// @Produce json
// @Param uuid path string true "Session id"
// @Param email path string true "Signer email"
// @Success 200 {object} signResponse
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /multi-sign/sign/{uuid}/{email} [post]
func SignStep(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("uuid")
		email, err := url.PathUnescape(c.Params("email"))
		if err != nil || email == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EMAIL", "invalid signer email")
		}

		res, err := svc.Advance(c.UserContext(), id, email, service.RequestMeta{RequestID: requestIDFromCtx(c)})
		if err != nil {
			if errors.Is(err, signing.ErrAlreadyCompleted) {
				return c.JSON(signResponse{
					Message:   "Signing already completed for this document",
					Completed: true,
				})
			}
			return writeServiceError(c, err)
		}

		name := res.SignerName
		if name == "" {
			name = res.SignedBy
		}
		out := signResponse{
			Message:     fmt.Sprintf("Document signed by %s", name),
			SignedBy:    res.SignedBy,
			Completed:   res.Completed,
			DownloadURL: downloadURL(c, id),
		}
		if res.NextSigner != "" {
			out.NextSigner = &res.NextSigner
		}
		return c.JSON(out)
	}
}

// DownloadLatest streams the newest document version, or redirects to a presigned URL.
// @Summary Download the latest document version
// @Tags multi-sign
// @Produce application/pdf
// @Param uuid path string true "Session id"
// @Param presign query bool false "Redirect to a presigned object URL"
// @Success 200 {file} file
// @Success 307
// @Failure 404 {object} errorPayload
// @Router /multi-sign/download/{uuid} [get]
func DownloadLatest(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("uuid")
		if c.QueryBool("presign") {
			u, err := svc.PresignLatest(c.UserContext(), id)
			if err != nil {
				return writeServiceError(c, err)
			}
			return c.Redirect(u, fiber.StatusTemporaryRedirect)
		}

		a, err := svc.LatestArtifact(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Attachment(a.Filename)
		return c.SendStream(a.Body, int(a.Info.Size))
	}
}

// SessionStatus returns the session snapshot.
// @Summary Session status
// @Tags multi-sign
// @Produce json
// @Param uuid path string true "Session id"
// @Success 200 {object} model.SigningSession
// @Failure 404 {object} errorPayload
// @Router /multi-sign/status/{uuid} [get]
func SessionStatus(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := svc.Status(c.UserContext(), c.Params("uuid"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(s)
	}
}

// SessionAudit lists the signing events of a session.
// @Summary Session audit trail
// @Tags multi-sign
// @Produce json
// @Param uuid path string true "Session id"
// @Success 200 {object} eventsResponse
// @Failure 404 {object} errorPayload
// @Router /multi-sign/audit/{uuid} [get]
func SessionAudit(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.Events(c.UserContext(), c.Params("uuid"))
		if err != nil {
			return writeServiceError(c, err)
		}
		if items == nil {
			items = []model.SigningEvent{}
		}
		return c.JSON(eventsResponse{Items: items, Total: len(items)})
	}
}
