package verification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"shiftguard.io/entities"
	"shiftguard.io/infrastructure/biometric"
	"shiftguard.io/infrastructure/biometric/types"
	"shiftguard.io/infrastructure/cryptography"
	mongo_repository "shiftguard.io/infrastructure/database/repository/mongo"
	"shiftguard.io/infrastructure/keystore"
)

type memoryRecordStore struct {
	mu      sync.Mutex
	records map[string]*entities.BiometricRecord
}

func newMemoryRecordStore() *memoryRecordStore {
	return &memoryRecordStore{records: map[string]*entities.BiometricRecord{}}
}

func (m *memoryRecordStore) matches(record *entities.BiometricRecord, filter map[string]interface{}) bool {
	for key, value := range filter {
		switch key {
		case "_id":
			if record.ID != value.(string) {
				return false
			}
		case "userID":
			if record.UserID != value.(string) {
				return false
			}
		case "biometricType":
			if record.BiometricType != value.(string) {
				return false
			}
		}
	}
	return true
}

func (m *memoryRecordStore) CreateOne(ctx context.Context, payload entities.BiometricRecord) (*entities.BiometricRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parsed := payload.ParseModel().(*entities.BiometricRecord)
	stored := *parsed
	m.records[stored.ID] = &stored
	return parsed, nil
}

func (m *memoryRecordStore) FindOneByFilter(filter map[string]interface{}, opts ...mongo_repository.FindOptions) (*entities.BiometricRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.records {
		if m.matches(record, filter) {
			found := *record
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memoryRecordStore) UpdatePartialByID(id string, payload map[string]interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return 0, nil
	}
	for key, value := range payload {
		switch key {
		case "encryptedPayload":
			record.EncryptedPayload = value.(string)
		case "integrityHash":
			record.IntegrityHash = value.(string)
		case "metadata.deviceInfo":
			record.Metadata.DeviceInfo = value.(entities.DeviceInfo)
		case "metadata.version":
			record.Metadata.Version = value.(int)
		case "metadata.lastUsed":
			lastUsed := value.(time.Time)
			record.Metadata.LastUsed = &lastUsed
		}
	}
	return 1, nil
}

func (m *memoryRecordStore) DeleteMany(ctx context.Context, filter map[string]interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := int64(0)
	for id, record := range m.records {
		if m.matches(record, filter) {
			delete(m.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memoryRecordStore) CountDocs(filter map[string]interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := int64(0)
	for _, record := range m.records {
		if m.matches(record, filter) {
			count++
		}
	}
	return count, nil
}

func probeFrame() types.FaceDetectionData {
	return types.FaceDetectionData{
		Bounds:                  types.FaceBounds{X: 250, Y: 200, Width: 500, Height: 500},
		FrameWidth:              1000,
		FrameHeight:             1000,
		LeftEyeOpenProbability:  0.9,
		RightEyeOpenProbability: 0.85,
		FaceID:                  "face-1",
		RollAngle:               2,
		YawAngle:                3,
		Luminance:               0.9,
	}
}

func probePhoto() types.CapturedPhoto {
	return types.CapturedPhoto{URI: "file:///data/user/verify.jpg", Width: 800, Height: 600}
}

func encodeVector(t *testing.T, vector []float64) string {
	t.Helper()
	encoded, err := json.Marshal(vector)
	if err != nil {
		t.Fatalf("encode vector: %v", err)
	}
	return string(encoded)
}

func newTestVerifier() (*TemplateFaceVerifier, *biometric.StorageService) {
	storage := biometric.NewStorageService(cryptography.DefaultCipher, keystore.NewMemoryKeyStore(), newMemoryRecordStore())
	verifier := NewTemplateFaceVerifier(
		biometric.NewQualityAnalyzer(biometric.DefaultQualityConfig()),
		biometric.NewHeuristicSpoofingScorer(biometric.DefaultSpoofingConfig()),
		storage,
	)
	return verifier, storage
}

func seedTemplate(t *testing.T, storage *biometric.StorageService, userID string, vectors [][]float64) {
	t.Helper()
	encodings := make([]string, 0, len(vectors))
	for _, vector := range vectors {
		encodings = append(encodings, encodeVector(t, vector))
	}
	joined, err := json.Marshal(encodings)
	if err != nil {
		t.Fatalf("encode template: %v", err)
	}
	payload, err := json.Marshal(types.RegistrationPayload{
		Confidence:       0.85,
		LivenessDetected: true,
		FaceEncoding:     string(joined),
		AngleCount:       len(vectors),
		CapturedAt:       time.Now(),
	})
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	device := entities.DeviceInfo{DeviceID: "device-1", Name: "Pixel 8", Platform: "android"}
	if err := storage.Store(context.Background(), userID, FaceBiometricType, payload, device); err != nil {
		t.Fatalf("seed template: %v", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"dimension mismatch", []float64{1, 2}, []float64{1, 2, 3}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 2}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestVerifyMatchesStoredTemplate(t *testing.T) {
	verifier, storage := newTestVerifier()
	seedTemplate(t, storage, "user-1", [][]float64{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0.9, -0.1, 0},
	})

	probe := FaceProbe{
		Frame:    probeFrame(),
		Photo:    probePhoto(),
		Encoding: encodeVector(t, []float64{1, 0, 0}),
		Liveness: true,
	}
	result := verifier.Verify(context.Background(), "user-1", probe)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if !result.Success {
		t.Fatalf("an identical encoding should match, got %+v", result)
	}
	if result.Confidence <= 0.5 || result.Confidence > 1 {
		t.Fatalf("confidence out of the expected band: %v", result.Confidence)
	}
}

func TestVerifySoftFailsOnWeakMatch(t *testing.T) {
	verifier, storage := newTestVerifier()
	seedTemplate(t, storage, "user-1", [][]float64{{1, 0, 0}})

	probe := FaceProbe{
		Frame:    probeFrame(),
		Photo:    probePhoto(),
		Encoding: encodeVector(t, []float64{0, 1, 0}),
		Liveness: true,
	}
	result := verifier.Verify(context.Background(), "user-1", probe)
	if result.Err != nil {
		t.Fatalf("a weak match is a soft failure, got error %v", result.Err)
	}
	if result.Success {
		t.Fatal("an orthogonal encoding must not match")
	}
}

func TestVerifyWithoutRegisteredProfile(t *testing.T) {
	verifier, _ := newTestVerifier()

	probe := FaceProbe{
		Frame:    probeFrame(),
		Photo:    probePhoto(),
		Encoding: encodeVector(t, []float64{1, 0, 0}),
		Liveness: true,
	}
	result := verifier.Verify(context.Background(), "user-1", probe)
	var verr *types.VerificationError
	if !errors.As(result.Err, &verr) || verr.Kind != types.CaptureError {
		t.Fatalf("expected a missing-profile capture error, got %v", result.Err)
	}
}

func TestVerifyRejectsDeadProbeBeforeMatching(t *testing.T) {
	verifier, storage := newTestVerifier()
	seedTemplate(t, storage, "user-1", [][]float64{{1, 0, 0}})

	probe := FaceProbe{
		Frame:    probeFrame(),
		Photo:    probePhoto(),
		Encoding: encodeVector(t, []float64{1, 0, 0}),
		Liveness: false,
	}
	result := verifier.Verify(context.Background(), "user-1", probe)
	var verr *types.VerificationError
	if !errors.As(result.Err, &verr) || verr.Kind != types.SpoofingDetected {
		t.Fatalf("expected a spoofing rejection, got %v", result.Err)
	}
}

func TestVerifyFlagsUnreadableTemplate(t *testing.T) {
	verifier, storage := newTestVerifier()
	device := entities.DeviceInfo{DeviceID: "device-1", Name: "Pixel 8", Platform: "android"}
	if err := storage.Store(context.Background(), "user-1", FaceBiometricType, []byte("not a payload"), device); err != nil {
		t.Fatalf("seed: %v", err)
	}

	probe := FaceProbe{
		Frame:    probeFrame(),
		Photo:    probePhoto(),
		Encoding: encodeVector(t, []float64{1, 0, 0}),
		Liveness: true,
	}
	result := verifier.Verify(context.Background(), "user-1", probe)
	var verr *types.VerificationError
	if !errors.As(result.Err, &verr) || verr.Kind != types.IntegrityCheckFailed {
		t.Fatalf("an unreadable template must route to re-registration, got %v", result.Err)
	}
}
