package repository

import (
	"sync"

	"shiftguard.io/entities"
	"shiftguard.io/infrastructure/database/connection/datastore"
	"shiftguard.io/infrastructure/database/repository/mongo"
)

var verificationAuditOnce = sync.Once{}

var verificationAuditRepository mongo.MongoRepository[entities.VerificationAudit]

func VerificationAuditRepo() *mongo.MongoRepository[entities.VerificationAudit] {
	verificationAuditOnce.Do(func() {
		verificationAuditRepository = mongo.MongoRepository[entities.VerificationAudit]{Model: datastore.VerificationAuditModel}
	})
	return &verificationAuditRepository
}
