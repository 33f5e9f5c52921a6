package verification

import (
	"shiftguard.io/infrastructure/biometric"
)

var FlowService *Orchestrator

// InitialiseVerificationService wires the orchestrator against the live
// biometric pipeline. Called once at startup, after the biometric service.
func InitialiseVerificationService() {
	FlowService = NewOrchestrator(
		NewGeofenceLocationChecker(),
		NewTemplateFaceVerifier(biometric.QualityService, biometric.SpoofingService, biometric.StorageManager),
		&QueueAuditSink{},
	)
}
