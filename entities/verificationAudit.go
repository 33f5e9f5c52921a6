package entities

import (
	"time"

	"shiftguard.io/application/utils"
)

const (
	AuditEventFlowCompleted   = "flow_completed"
	AuditEventManagerOverride = "manager_override"
)

// VerificationAudit is one audit trail entry. Flow summaries and manager
// overrides are written as separate events so overrides are never folded
// into normal confidence scoring.
type VerificationAudit struct {
	UserID          string   `bson:"userID" json:"userID"`
	DeviceID        string   `bson:"deviceID" json:"deviceID"`
	EventType       string   `bson:"eventType" json:"eventType"`
	ConfidenceScore float64  `bson:"confidenceScore" json:"confidenceScore"`
	FallbackMode    bool     `bson:"fallbackMode" json:"fallbackMode"`
	CompletedSteps  []string `bson:"completedSteps" json:"completedSteps"`
	Outcome         string   `bson:"outcome" json:"outcome"`
	FailureKind     *string  `bson:"failureKind" json:"failureKind"`
	TotalLatencyMs  int64    `bson:"totalLatencyMs" json:"totalLatencyMs"`
	OverrideReason  *string  `bson:"overrideReason" json:"overrideReason"`

	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (model VerificationAudit) ParseModel() any {
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
		if model.ID == "" {
			model.ID = utils.GenerateULIDString()
		}
	}
	model.UpdatedAt = now
	return &model
}
