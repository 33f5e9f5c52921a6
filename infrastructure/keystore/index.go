package keystore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"shiftguard.io/infrastructure/cryptography"
	"shiftguard.io/infrastructure/database/repository/cache"
)

// KeyStore hands out the per-device symmetric key used to encrypt biometric
// payloads. A key is generated once per device and reused afterwards.
type KeyStore interface {
	DeviceKey(deviceID string) ([]byte, error)
	DeleteDeviceKey(deviceID string) error
}

type redisKeyStore struct{}

func NewRedisKeyStore() KeyStore {
	return &redisKeyStore{}
}

func (ks *redisKeyStore) DeviceKey(deviceID string) ([]byte, error) {
	cacheKey := fmt.Sprintf("%s-biometric-key", deviceID)
	existing := cache.Cache.FindOne(cacheKey)
	if existing == nil {
		generated, err := cryptography.GenerateSymmetricKey()
		if err != nil {
			return nil, err
		}
		// SetNX so two concurrent registrations on the same device agree
		// on a single key
		if !cache.Cache.CreateEntryIfAbsent(cacheKey, *generated, 0) {
			existing = cache.Cache.FindOne(cacheKey)
			if existing == nil {
				return nil, errors.New("could not persist device key")
			}
		} else {
			existing = generated
		}
	}
	return hex.DecodeString(*existing)
}

func (ks *redisKeyStore) DeleteDeviceKey(deviceID string) error {
	cache.Cache.DeleteOne(fmt.Sprintf("%s-biometric-key", deviceID))
	return nil
}

// MemoryKeyStore keeps keys in-process. Meant for tests.
type MemoryKeyStore struct {
	mu   sync.Mutex
	keys map[string][]byte
}

func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: map[string][]byte{}}
}

func (ks *MemoryKeyStore) DeviceKey(deviceID string) ([]byte, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if key, ok := ks.keys[deviceID]; ok {
		return key, nil
	}
	generated, err := cryptography.GenerateSymmetricKey()
	if err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(*generated)
	if err != nil {
		return nil, err
	}
	ks.keys[deviceID] = key
	return key, nil
}

func (ks *MemoryKeyStore) DeleteDeviceKey(deviceID string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	delete(ks.keys, deviceID)
	return nil
}
