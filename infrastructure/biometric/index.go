package biometric

import (
	"shiftguard.io/application/repository"
	"shiftguard.io/infrastructure/cryptography"
	"shiftguard.io/infrastructure/keystore"
	verificationgateway "shiftguard.io/infrastructure/verification_gateway"
)

var QualityService *QualityAnalyzer
var SpoofingService SpoofingScorer
var StorageManager *StorageService
var CaptureService *CaptureController

// InitialiseBiometricService wires the capture pipeline against the live
// keystore, mongo repository and remote gateway. Called once at startup
// after the database and gateway are up.
func InitialiseBiometricService() {
	QualityService = NewQualityAnalyzer(DefaultQualityConfig())
	SpoofingService = NewHeuristicSpoofingScorer(DefaultSpoofingConfig())
	StorageManager = NewStorageService(
		cryptography.DefaultCipher,
		keystore.NewRedisKeyStore(),
		repository.BiometricRecordRepo(),
	)
	CaptureService = NewCaptureController(
		QualityService,
		SpoofingService,
		StorageManager,
		verificationgateway.Gateway,
		DefaultCaptureConfig(),
	)
}
