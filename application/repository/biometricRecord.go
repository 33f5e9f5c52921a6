package repository

import (
	"sync"

	"shiftguard.io/entities"
	"shiftguard.io/infrastructure/database/connection/datastore"
	"shiftguard.io/infrastructure/database/repository/mongo"
)

var biometricRecordOnce = sync.Once{}

var biometricRecordRepository mongo.MongoRepository[entities.BiometricRecord]

func BiometricRecordRepo() *mongo.MongoRepository[entities.BiometricRecord] {
	biometricRecordOnce.Do(func() {
		biometricRecordRepository = mongo.MongoRepository[entities.BiometricRecord]{Model: datastore.BiometricRecordModel}
	})
	return &biometricRecordRepository
}
