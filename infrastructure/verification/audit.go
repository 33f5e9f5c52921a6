package verification

import (
	"encoding/json"

	"shiftguard.io/entities"
	"shiftguard.io/infrastructure/logger"
	messagequeue "shiftguard.io/infrastructure/message_queue"
	queue_tasks "shiftguard.io/infrastructure/message_queue/tasks"
	mq_types "shiftguard.io/infrastructure/message_queue/types"
)

// QueueAuditSink ships audit events through the task queue so the
// verification path never waits on mongo.
type QueueAuditSink struct{}

func (sink *QueueAuditSink) RecordFlow(userID string, deviceID string, summary VerificationFlowSummary) {
	sink.enqueue(entities.VerificationAudit{
		UserID:          userID,
		DeviceID:        deviceID,
		EventType:       entities.AuditEventFlowCompleted,
		ConfidenceScore: summary.ConfidenceScore,
		FallbackMode:    summary.FallbackMode,
		CompletedSteps:  summary.CompletedSteps,
		Outcome:         summary.Outcome,
		FailureKind:     failureKindString(summary),
		TotalLatencyMs:  summary.TotalLatencyMs,
	})
}

func (sink *QueueAuditSink) RecordOverride(userID string, deviceID string, reason string, summary VerificationFlowSummary) {
	sink.enqueue(entities.VerificationAudit{
		UserID:          userID,
		DeviceID:        deviceID,
		EventType:       entities.AuditEventManagerOverride,
		ConfidenceScore: summary.ConfidenceScore,
		FallbackMode:    summary.FallbackMode,
		CompletedSteps:  summary.CompletedSteps,
		Outcome:         summary.Outcome,
		TotalLatencyMs:  summary.TotalLatencyMs,
		OverrideReason:  &reason,
	})
}

func (sink *QueueAuditSink) enqueue(audit entities.VerificationAudit) {
	payload, err := json.Marshal(audit)
	if err != nil {
		logger.Error("could not serialise verification audit", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return
	}
	messagequeue.TaskQueue.Enqueue(mq_types.QueueTask{
		Name:     queue_tasks.HandleVerificationAuditTaskName,
		Payload:  payload,
		Priority: mq_types.Medium,
	})
}

func failureKindString(summary VerificationFlowSummary) *string {
	if summary.FailureKind == nil {
		return nil
	}
	kind := string(*summary.FailureKind)
	return &kind
}
