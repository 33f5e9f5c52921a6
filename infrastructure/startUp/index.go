package startup

import (
	"shiftguard.io/infrastructure/biometric"
	"shiftguard.io/infrastructure/database"
	"shiftguard.io/infrastructure/database/connection/datastore"
	"shiftguard.io/infrastructure/logger"
	"shiftguard.io/infrastructure/verification"
	verificationgateway "shiftguard.io/infrastructure/verification_gateway"
)

// Used to start services such as loggers, databases, queues, etc.
func StartServices() {
	logger.InitializeLogger()
	database.SetUpDatabase()
	verificationgateway.InitialiseVerificationGateway()
	biometric.InitialiseBiometricService()
	verification.InitialiseVerificationService()
}

// Used to clean up after services that have been shutdown.
func CleanUpServices() {
	datastore.CleanUp()
}
