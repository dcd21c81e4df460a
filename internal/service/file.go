package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"signflow/internal/metrics"
	"signflow/internal/model"
	"signflow/internal/repository"
	"signflow/internal/signing"
	"signflow/internal/storage"
)

const (
	oneShotPrefix    = "signed/"
	oneShotField     = "MyCustomSignaturefield"
	oneShotTimestamp = "20060102_150405"
)

// oneShotBox is where a single-file signature is placed on the first page.
var oneShotBox = signing.Rect{X1: 400, Y1: 50, X2: 580, Y2: 150}

// FileSignInput is a single-file signing request outside any session.
type FileSignInput struct {
	Filename     string
	Document     io.Reader
	Department   string
	DocumentType string
	RequestID    string
}

// FileSignResult names the stored signed file.
type FileSignResult struct {
	Filename string `json:"filename"`
	Key      string `json:"-"`
	Size     int64  `json:"size"`
}

// FileSigningService signs standalone PDFs with the service identity.
type FileSigningService interface {
	SignFile(ctx context.Context, in FileSignInput) (*FileSignResult, error)
	// Download opens a previously signed file. The caller closes the reader.
	Download(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error)
}

type fileSigningService struct {
	store       storage.Storage
	exec        *signing.Executor
	audit       auditRecorder
	metrics     *metrics.Signing
	serviceName string
	now         func() time.Time
	log         logrus.FieldLogger
}

func NewFileSigningService(
	store storage.Storage,
	exec *signing.Executor,
	events repository.AuditRepository,
	m *metrics.Signing,
	serviceName string,
	now func() time.Time,
	log logrus.FieldLogger,
) FileSigningService {
	if now == nil {
		now = time.Now
	}
	log = log.WithField("component", "file_signing")
	return &fileSigningService{
		store:       store,
		exec:        exec,
		audit:       auditRecorder{repo: events, log: log, now: now},
		metrics:     m,
		serviceName: serviceName,
		now:         now,
		log:         log,
	}
}

// cleanFilename rejects names that could escape the signed/ namespace.
func cleanFilename(name string) (string, error) {
	if name == "" || name != path.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", invalid("invalid filename %q", name)
	}
	return name, nil
}

func (s *fileSigningService) SignFile(ctx context.Context, in FileSignInput) (*FileSignResult, error) {
	name, err := cleanFilename(in.Filename)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(path.Ext(name), ".pdf") {
		return nil, invalid("only PDF files are allowed")
	}
	doc, err := readDocument(in.Document)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	signedName := fmt.Sprintf("signed_%s_%s", now.Format(oneShotTimestamp), name)
	event := model.SigningEvent{
		RequestID:    in.RequestID,
		OriginalFile: name,
		SignerName:   s.serviceName,
		Department:   in.Department,
		DocumentType: in.DocumentType,
	}

	signed, err := s.exec.SignOnce(ctx, signing.SignRequest{
		Document: doc,
		Signer:   signing.Identity{Name: s.serviceName},
		Fields: []signing.Field{{
			Name: oneShotField,
			Page: 0,
			Box:  oneShotBox,
		}},
		SignatureField: oneShotField,
		SignedAt:       now,
	})
	if err != nil {
		s.metrics.ObserveOneShot(metrics.OutcomeSigningFailed)
		event.Status = model.EventFailed
		event.Error = err.Error()
		s.audit.record(ctx, event)
		return nil, &signing.SigningError{Signer: s.serviceName, Err: err}
	}

	key := oneShotPrefix + signedName
	info, err := s.store.Put(ctx, key, bytes.NewReader(signed), storage.PutObjectOptions{
		Size:        int64(len(signed)),
		ContentType: "application/pdf",
		Metadata: map[string]string{
			"original-filename": name,
			"request-id":        in.RequestID,
		},
	})
	if err != nil {
		s.metrics.ObserveOneShot(metrics.OutcomeError)
		event.Status = model.EventFailed
		event.Error = err.Error()
		s.audit.record(ctx, event)
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	s.metrics.ObserveOneShot(metrics.OutcomeSuccess)
	event.Status = model.EventSuccess
	event.SignedFile = signedName
	s.audit.record(ctx, event)

	s.log.WithFields(logrus.Fields{
		"event":      "file_signed",
		"request_id": in.RequestID,
		"file":       signedName,
	}).Info("file signed")

	size := info.Size
	if size <= 0 {
		size = int64(len(signed))
	}
	return &FileSignResult{Filename: signedName, Key: key, Size: size}, nil
}

func (s *fileSigningService) Download(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error) {
	name, err := cleanFilename(filename)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	rc, info, err := s.store.Get(ctx, oneShotPrefix+name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ObjectInfo{}, ErrArtifactNotFound
		}
		return nil, storage.ObjectInfo{}, err
	}
	return rc, info, nil
}
