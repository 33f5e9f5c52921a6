package biometric

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"shiftguard.io/entities"
	"shiftguard.io/infrastructure/biometric/types"
	"shiftguard.io/infrastructure/cryptography"
	mongo_repository "shiftguard.io/infrastructure/database/repository/mongo"
	"shiftguard.io/infrastructure/keystore"
	"shiftguard.io/infrastructure/logger"
)

// RecordStore is the slice of the mongo repository the storage service
// needs. *mongo_repository.MongoRepository[entities.BiometricRecord]
// satisfies it; tests use an in-memory fake.
type RecordStore interface {
	CreateOne(ctx context.Context, payload entities.BiometricRecord) (*entities.BiometricRecord, error)
	FindOneByFilter(filter map[string]interface{}, opts ...mongo_repository.FindOptions) (*entities.BiometricRecord, error)
	UpdatePartialByID(id string, payload map[string]interface{}) (int64, error)
	DeleteMany(ctx context.Context, filter map[string]interface{}) (int64, error)
	CountDocs(filter map[string]interface{}) (int64, error)
}

// StorageService encrypts, hashes and persists biometric templates, one
// record per (userID, biometricType). Reads fail closed on any integrity
// mismatch.
type StorageService struct {
	Cipher  cryptography.Cipher
	Keys    keystore.KeyStore
	Records RecordStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStorageService(cipher cryptography.Cipher, keys keystore.KeyStore, records RecordStore) *StorageService {
	return &StorageService{
		Cipher:  cipher,
		Keys:    keys,
		Records: records,
		locks:   map[string]*sync.Mutex{},
	}
}

// recordLock serialises read/modify/write sequences per (userID, type) so
// concurrent reads cannot lose lastUsed updates.
func (s *StorageService) recordLock(userID string, biometricType string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userID + ":" + biometricType
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func (s *StorageService) Store(ctx context.Context, userID string, biometricType string, payload []byte, deviceInfo entities.DeviceInfo) error {
	lock := s.recordLock(userID, biometricType)
	lock.Lock()
	defer lock.Unlock()

	key, err := s.Keys.DeviceKey(deviceInfo.DeviceID)
	if err != nil {
		return types.NewVerificationError(types.CaptureError, "could not access the device encryption key")
	}
	ciphertext, err := s.Cipher.Encrypt(payload, key)
	if err != nil {
		logger.Error("error encrypting biometric payload", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return types.NewVerificationError(types.CaptureError, "could not secure the biometric template")
	}
	encoded := base64.StdEncoding.EncodeToString(ciphertext)
	integrityHash := cryptography.HashPayload(payload)

	existing, err := s.Records.FindOneByFilter(map[string]interface{}{
		"userID":        userID,
		"biometricType": biometricType,
	})
	if err != nil {
		return types.NewVerificationError(types.NetworkError, "could not reach biometric storage")
	}

	if existing == nil {
		_, err = s.Records.CreateOne(ctx, entities.BiometricRecord{
			UserID:           userID,
			BiometricType:    biometricType,
			EncryptedPayload: encoded,
			IntegrityHash:    integrityHash,
			Metadata: entities.BiometricMetadata{
				DeviceInfo: deviceInfo,
				Version:    1,
			},
		})
		if err != nil {
			return types.NewVerificationError(types.NetworkError, "could not persist the biometric template")
		}
		return nil
	}

	// updates keep the original createdAt; only the payload, device binding
	// and version move forward
	_, err = s.Records.UpdatePartialByID(existing.ID, map[string]interface{}{
		"encryptedPayload":    encoded,
		"integrityHash":       integrityHash,
		"metadata.deviceInfo": deviceInfo,
		"metadata.version":    existing.Metadata.Version + 1,
	})
	if err != nil {
		return types.NewVerificationError(types.NetworkError, "could not update the biometric template")
	}
	return nil
}

// Retrieve returns the decrypted payload, or nil when no record exists. A
// failed decrypt or digest mismatch discards the stored record and surfaces
// INTEGRITY_CHECK_FAILED; partially trusted data is never returned.
func (s *StorageService) Retrieve(ctx context.Context, userID string, biometricType string) ([]byte, error) {
	lock := s.recordLock(userID, biometricType)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.Records.FindOneByFilter(map[string]interface{}{
		"userID":        userID,
		"biometricType": biometricType,
	})
	if err != nil {
		return nil, types.NewVerificationError(types.NetworkError, "could not reach biometric storage")
	}
	if record == nil {
		return nil, nil
	}

	key, err := s.Keys.DeviceKey(record.Metadata.DeviceInfo.DeviceID)
	if err != nil {
		return nil, types.NewVerificationError(types.CaptureError, "could not access the device encryption key")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(record.EncryptedPayload)
	if err != nil {
		return nil, s.discardCorruptRecord(ctx, record)
	}
	payload, err := s.Cipher.Decrypt(ciphertext, key)
	if err != nil {
		return nil, s.discardCorruptRecord(ctx, record)
	}
	if cryptography.HashPayload(payload) != record.IntegrityHash {
		return nil, s.discardCorruptRecord(ctx, record)
	}

	// a lost lastUsed bump must not fail the read, but it has to be visible
	// when debugging stale-template reports
	now := time.Now()
	if _, err := s.Records.UpdatePartialByID(record.ID, map[string]interface{}{
		"metadata.lastUsed": now,
	}); err != nil {
		logger.Warning("could not record biometric template use", logger.LoggerOptions{
			Key:  "recordID",
			Data: record.ID,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}
	return payload, nil
}

// discardCorruptRecord is fatal for the stored template: the record is
// removed and the caller must route the user to re-registration.
func (s *StorageService) discardCorruptRecord(ctx context.Context, record *entities.BiometricRecord) error {
	logger.Error("biometric record failed its integrity check, discarding", logger.LoggerOptions{
		Key:  "recordID",
		Data: record.ID,
	}, logger.LoggerOptions{
		Key:  "userID",
		Data: record.UserID,
	})
	s.Records.DeleteMany(ctx, map[string]interface{}{"_id": record.ID})
	return types.NewVerificationError(types.IntegrityCheckFailed,
		"Your stored face profile could not be verified. Please register your face again.")
}

// Delete removes the template for one type, or for every type when
// biometricType is nil. Deletion is permanent.
func (s *StorageService) Delete(ctx context.Context, userID string, biometricType *string) error {
	filter := map[string]interface{}{"userID": userID}
	if biometricType != nil {
		filter["biometricType"] = *biometricType
	}
	_, err := s.Records.DeleteMany(ctx, filter)
	if err != nil {
		return types.NewVerificationError(types.NetworkError, "could not delete the biometric template")
	}
	return nil
}

func (s *StorageService) HasData(userID string, biometricType string) bool {
	count, err := s.Records.CountDocs(map[string]interface{}{
		"userID":        userID,
		"biometricType": biometricType,
	})
	if err != nil {
		return false
	}
	return count > 0
}
