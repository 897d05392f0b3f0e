package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"curation-bff/clients"
	apperrors "curation-bff/common/errors"
	awspkg "curation-bff/pkg/aws"

	"go.uber.org/zap"
)

// JobResultMessage announces that a curation job changed status.
type JobResultMessage struct {
	JobID  string `json:"job_id"`
	Status string `json:"status,omitempty"`
}

// ParseJobResultMessage accepts a bare message or one wrapped in an SNS
// notification envelope.
func ParseJobResultMessage(body string) (JobResultMessage, error) {
	var envelope struct {
		Type    string `json:"Type"`
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Type == "Notification" && envelope.Message != "" {
		body = envelope.Message
	}

	var msg JobResultMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return msg, fmt.Errorf("decode job result message: %w", err)
	}
	msg.JobID = strings.TrimSpace(msg.JobID)
	if msg.JobID == "" {
		return msg, errors.New("job result message without job_id")
	}
	return msg, nil
}

// NewJobResultHandler reconciles jobs announced on the results queue. Calls
// are made with serviceToken since no browser request is in flight. A job
// that is not finished yet is returned as an error so the message is
// redelivered later.
func NewJobResultHandler(svc CurationService, serviceToken string, logger *zap.Logger) awspkg.MessageHandler {
	return func(ctx context.Context, body string) error {
		msg, err := ParseJobResultMessage(body)
		if err != nil {
			// malformed messages would be redelivered forever
			logger.Error("dropping malformed job result message", zap.Error(err))
			return nil
		}

		ctx = clients.WithCredentials(ctx, clients.CredentialsFromToken(serviceToken))
		out, err := svc.ReconcileJob(ctx, msg.JobID)
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			logger.Warn("job result for unknown job", zap.String("job_id", msg.JobID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("reconcile job %s: %w", msg.JobID, err)
		}
		if !out.Applied && !out.AlreadyReconciled {
			return fmt.Errorf("job %s is still %s", msg.JobID, out.Status)
		}
		if len(out.RetryIDs) > 0 {
			return fmt.Errorf("job %s: %d products left to apply", msg.JobID, len(out.RetryIDs))
		}
		return nil
	}
}
