package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"signflow/internal/model"
	"signflow/internal/repository"
)

// auditRecorder writes signing events. Failures are logged and never
// returned: a committed step must not be reported as failed because its
// audit row could not be written.
type auditRecorder struct {
	repo repository.AuditRepository
	log  logrus.FieldLogger
	now  func() time.Time
}

func (a auditRecorder) record(ctx context.Context, e model.SigningEvent) {
	if a.repo == nil {
		return
	}
	e.ID = uuid.NewString()
	e.Timestamp = a.now().UTC()
	if err := a.repo.Record(context.WithoutCancel(ctx), &e); err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{
			"event":      "audit_record_failed",
			"session_id": e.SessionID,
			"request_id": e.RequestID,
			"status":     e.Status,
		}).Error("failed to record signing event")
	}
}
