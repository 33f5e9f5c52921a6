package queue_tasks

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"shiftguard.io/application/repository"
	"shiftguard.io/entities"
	"shiftguard.io/infrastructure/logger"
	mq_types "shiftguard.io/infrastructure/message_queue/types"
)

var HandleVerificationAuditTaskName mq_types.Queues = "persist_verification_audit"

// HandleVerificationAuditTask persists one audit event. Audits are written
// off the hot verification path; asynq retries cover transient mongo
// failures.
func HandleVerificationAuditTask(ctx context.Context, t *asynq.Task) error {
	var audit entities.VerificationAudit
	if err := json.Unmarshal(t.Payload(), &audit); err != nil {
		logger.Error("an error occured while unmarshalling verification audit payload", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return err
	}
	if _, err := repository.VerificationAuditRepo().CreateOne(ctx, audit); err != nil {
		logger.Error("failed to persist verification audit", logger.LoggerOptions{
			Key:  "userID",
			Data: audit.UserID,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return err
	}
	return nil
}
