package entities

import (
	"fmt"
	"time"

	"shiftguard.io/application/utils"
)

type DeviceInfo struct {
	DeviceID string `bson:"deviceID" json:"deviceID"`
	Name     string `bson:"name" json:"name"`
	Platform string `bson:"platform" json:"platform"`
}

type BiometricMetadata struct {
	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt"`
	LastUsed   *time.Time `bson:"lastUsed" json:"lastUsed"`
	DeviceInfo DeviceInfo `bson:"deviceInfo" json:"deviceInfo"`
	Version    int        `bson:"version" json:"version"`
}

// BiometricRecord is the encrypted template stored per (userID, type). The
// payload is opaque ciphertext; IntegrityHash is recomputed over the
// decrypted payload on every read.
type BiometricRecord struct {
	UserID           string            `bson:"userID" json:"userID"`
	BiometricType    string            `bson:"biometricType" json:"biometricType"`
	EncryptedPayload string            `bson:"encryptedPayload" json:"-"`
	IntegrityHash    string            `bson:"integrityHash" json:"-"`
	Metadata         BiometricMetadata `bson:"metadata" json:"metadata"`

	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// BiometricRecordID derives the record id from its owner, type, creation
// time and a random component.
func BiometricRecordID(userID string, biometricType string, createdAt time.Time) string {
	return fmt.Sprintf("%s_%s_%d_%s", userID, biometricType, createdAt.UnixMilli(), utils.GenerateULIDString())
}

func (model BiometricRecord) ParseModel() any {
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
		model.Metadata.CreatedAt = now
		if model.ID == "" {
			model.ID = BiometricRecordID(model.UserID, model.BiometricType, now)
		}
	}
	model.UpdatedAt = now
	return &model
}
