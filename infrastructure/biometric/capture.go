package biometric

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"shiftguard.io/application/constants"
	"shiftguard.io/application/utils"
	"shiftguard.io/entities"
	"shiftguard.io/infrastructure/biometric/types"
	"shiftguard.io/infrastructure/logger"
)

type CaptureState string

const (
	StateAwaitingConsent CaptureState = "awaiting_consent"
	StateCapturingAngle  CaptureState = "capturing_angle"
	StateAngleCaptured   CaptureState = "angle_captured"
	StateAngleFailed     CaptureState = "angle_failed"
	StateAllCaptured     CaptureState = "all_captured"
	StateAggregating     CaptureState = "aggregating"
	StateRegistered      CaptureState = "registered"
	StateAborted         CaptureState = "aborted"
)

// RegistrationGateway submits a completed registration to the backend
// profile service.
type RegistrationGateway interface {
	Register(ctx context.Context, payload types.RegistrationPayload, deviceInfo entities.DeviceInfo, bearerToken string) error
}

type CaptureConfig struct {
	Angles             []string
	MaxRetriesPerAngle int
	// the sensor needs time to re-initialise between attempts; starting a
	// new session too early reproduces a known camera race
	SensorReinitDelay time.Duration
}

func DefaultCaptureConfig() CaptureConfig {
	config := CaptureConfig{
		Angles:             constants.CAPTURE_ANGLES,
		MaxRetriesPerAngle: constants.MAX_ANGLE_RETRIES,
		SensorReinitDelay:  2 * time.Second,
	}
	if raw := os.Getenv("SENSOR_REINIT_DELAY_MS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			config.SensorReinitDelay = time.Duration(parsed) * time.Millisecond
		}
	}
	return config
}

// CaptureSession is one user's multi-angle registration flow.
type CaptureSession struct {
	ID         string
	UserID     string
	DeviceInfo entities.DeviceInfo
	State      CaptureState
	AngleIndex int
	Captures   []types.CapturedAngleResult
	LastError  *types.VerificationError
	StartedAt  time.Time

	attempts      map[int]int
	lastFailureAt map[int]time.Time
	sensorHeld    bool
}

func (cs *CaptureSession) terminal() bool {
	return cs.State == StateRegistered || cs.State == StateAborted
}

// CaptureProgress is the snapshot handed to clients driving the capture UI.
type CaptureProgress struct {
	SessionID     string       `json:"sessionID"`
	State         CaptureState `json:"state"`
	Angles        []string     `json:"angles"`
	CurrentAngle  string       `json:"currentAngle"`
	CapturedCount int          `json:"capturedCount"`
	AttemptsLeft  int          `json:"attemptsLeft"`
}

// CaptureController drives capture sessions through the angle state
// machine. The biometric sensor is exclusive: one active session per
// (userID, deviceID), and the sensor must be confirmed released between
// angle attempts.
type CaptureController struct {
	Quality *QualityAnalyzer
	Scorer  SpoofingScorer
	Storage *StorageService
	Gateway RegistrationGateway
	Config  CaptureConfig

	clock    func() time.Time
	mu       sync.Mutex
	sessions map[string]*CaptureSession
	active   map[string]string // userID:deviceID -> sessionID
}

func NewCaptureController(quality *QualityAnalyzer, scorer SpoofingScorer, storage *StorageService, gateway RegistrationGateway, config CaptureConfig) *CaptureController {
	return &CaptureController{
		Quality:  quality,
		Scorer:   scorer,
		Storage:  storage,
		Gateway:  gateway,
		Config:   config,
		clock:    time.Now,
		sessions: map[string]*CaptureSession{},
		active:   map[string]string{},
	}
}

func (cc *CaptureController) StartSession(userID string, deviceInfo entities.DeviceInfo, consentGiven bool) (*CaptureSession, error) {
	if !consentGiven {
		return nil, types.NewVerificationError(types.CaptureError, "Face registration requires your explicit consent.")
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()

	activeKey := userID + ":" + deviceInfo.DeviceID
	if existingID, ok := cc.active[activeKey]; ok {
		if existing, ok := cc.sessions[existingID]; ok && !existing.terminal() {
			return nil, types.NewVerificationError(types.CaptureError,
				"Another capture session is still using the camera. Finish or cancel it first.")
		}
	}

	session := &CaptureSession{
		ID:            utils.GenerateULIDString(),
		UserID:        userID,
		DeviceInfo:    deviceInfo,
		State:         StateAwaitingConsent,
		StartedAt:     cc.clock(),
		attempts:      map[int]int{},
		lastFailureAt: map[int]time.Time{},
	}
	cc.sessions[session.ID] = session
	cc.active[activeKey] = session.ID

	logger.Info("capture session started", logger.LoggerOptions{
		Key:  "sessionID",
		Data: session.ID,
	}, logger.LoggerOptions{
		Key:  "userID",
		Data: userID,
	})
	return session, nil
}

// BeginAngle opens the sensor for the current angle. It refuses to start
// while the previous attempt still holds the sensor, caps per-angle retries
// and enforces the re-initialisation delay after a failed attempt.
func (cc *CaptureController) BeginAngle(sessionID string) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	session, err := cc.session(sessionID)
	if err != nil {
		return err
	}

	switch session.State {
	case StateAwaitingConsent, StateAngleCaptured, StateAngleFailed:
	default:
		return types.NewVerificationError(types.CaptureError,
			fmt.Sprintf("cannot start an angle capture from state %s", session.State))
	}

	if session.sensorHeld {
		return types.NewVerificationError(types.CaptureError,
			"The camera from the previous attempt has not been released yet.")
	}

	angle := session.AngleIndex
	if session.attempts[angle] >= cc.Config.MaxRetriesPerAngle {
		return types.NewVerificationError(types.CaptureError,
			fmt.Sprintf("Too many failed attempts for the %s angle. Cancel and restart registration.", cc.Config.Angles[angle]))
	}
	if failedAt, ok := session.lastFailureAt[angle]; ok {
		if elapsed := cc.clock().Sub(failedAt); elapsed < cc.Config.SensorReinitDelay {
			return types.NewVerificationError(types.CaptureError,
				"The camera is still re-initialising. Try again in a moment.")
		}
	}

	session.attempts[angle]++
	session.State = StateCapturingAngle
	session.sensorHeld = true
	return nil
}

// SubmitAngle scores the captured frame. The angle passes only when quality
// is valid, the photo is not flagged as spoofed and the liveness signal is
// present; any other outcome lands in the recoverable AngleFailed state.
func (cc *CaptureController) SubmitAngle(sessionID string, frame types.FaceDetectionData, photo types.CapturedPhoto, encoding string, liveness bool) (*types.CapturedAngleResult, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	session, err := cc.session(sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != StateCapturingAngle {
		return nil, types.NewVerificationError(types.CaptureError,
			fmt.Sprintf("no angle capture in progress, session is %s", session.State))
	}

	quality := cc.Quality.Analyze(frame)
	if !quality.IsValid {
		feedback := ClassifyLighting(quality.Lighting)
		message := fmt.Sprintf("Image quality too low (lighting: %s). Adjust and retry.", feedback.Band)
		return nil, cc.failAngle(session, types.NewVerificationError(types.QualityRejected, message))
	}

	if cc.Scorer.QuickCheck(frame) {
		return nil, cc.failAngle(session, types.NewVerificationError(types.SpoofingDetected,
			"The captured image does not look like a live face."))
	}
	analysis := cc.Scorer.Analyze(photo, frame)
	if analysis.IsSpoofed {
		return nil, cc.failAngle(session, types.NewVerificationError(types.SpoofingDetected,
			"The captured image does not look like a live face."))
	}
	if !liveness {
		return nil, cc.failAngle(session, types.NewVerificationError(types.SpoofingDetected,
			"No liveness signal was detected. Blink naturally during capture."))
	}

	result := types.CapturedAngleResult{
		Angle:            cc.Config.Angles[session.AngleIndex],
		Confidence:       (quality.Overall + analysis.OverallScore) / 2,
		LivenessDetected: liveness,
		FaceEncoding:     encoding,
		Timestamp:        cc.clock(),
	}
	session.Captures = append(session.Captures, result)
	session.LastError = nil

	if len(session.Captures) == len(cc.Config.Angles) {
		session.State = StateAllCaptured
	} else {
		session.State = StateAngleCaptured
		session.AngleIndex++
	}
	return &result, nil
}

// ConfirmSensorRelease is the client's explicit teardown confirmation. The
// next angle cannot open the sensor until this arrives.
func (cc *CaptureController) ConfirmSensorRelease(sessionID string) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	session, err := cc.session(sessionID)
	if err != nil {
		return err
	}
	session.sensorHeld = false
	return nil
}

// Submit aggregates the captures and registers the template locally and
// remotely. A failure here returns the session to AllCaptured with its
// captures intact so submission can be retried without recapturing.
func (cc *CaptureController) Submit(ctx context.Context, sessionID string, biometricType string, bearerToken string) error {
	cc.mu.Lock()
	session, err := cc.session(sessionID)
	if err != nil {
		cc.mu.Unlock()
		return err
	}
	if session.State != StateAllCaptured {
		cc.mu.Unlock()
		return types.NewVerificationError(types.CaptureError,
			fmt.Sprintf("all angles must be captured before submission, session is %s", session.State))
	}
	session.State = StateAggregating
	captures := make([]types.CapturedAngleResult, len(session.Captures))
	copy(captures, session.Captures)
	cc.mu.Unlock()

	revert := func(submitErr error) error {
		cc.mu.Lock()
		session.State = StateAllCaptured
		if verr, ok := submitErr.(*types.VerificationError); ok {
			session.LastError = verr
		}
		cc.mu.Unlock()
		return submitErr
	}

	payload, err := Aggregate(captures, len(cc.Config.Angles))
	if err != nil {
		return revert(err)
	}
	serialized, err := json.Marshal(payload)
	if err != nil {
		return revert(types.NewVerificationError(types.CaptureError, "could not serialise the registration payload"))
	}

	if err := cc.Storage.Store(ctx, session.UserID, biometricType, serialized, session.DeviceInfo); err != nil {
		return revert(err)
	}
	if err := cc.Gateway.Register(ctx, *payload, session.DeviceInfo, bearerToken); err != nil {
		return revert(err)
	}

	cc.mu.Lock()
	session.State = StateRegistered
	delete(cc.active, session.UserID+":"+session.DeviceInfo.DeviceID)
	cc.mu.Unlock()

	logger.Info("biometric registration completed", logger.LoggerOptions{
		Key:  "sessionID",
		Data: session.ID,
	}, logger.LoggerOptions{
		Key:  "userID",
		Data: session.UserID,
	})
	return nil
}

// Abort cancels the session, releases the sensor and drops every captured
// angle. Partial captures are never persisted.
func (cc *CaptureController) Abort(sessionID string) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	session, err := cc.session(sessionID)
	if err != nil {
		return err
	}
	if session.terminal() {
		return nil
	}
	session.State = StateAborted
	session.Captures = nil
	session.sensorHeld = false
	delete(cc.active, session.UserID+":"+session.DeviceInfo.DeviceID)
	return nil
}

func (cc *CaptureController) Progress(sessionID string) (*CaptureProgress, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	session, err := cc.session(sessionID)
	if err != nil {
		return nil, err
	}
	currentAngle := ""
	if session.AngleIndex < len(cc.Config.Angles) {
		currentAngle = cc.Config.Angles[session.AngleIndex]
	}
	return &CaptureProgress{
		SessionID:     session.ID,
		State:         session.State,
		Angles:        cc.Config.Angles,
		CurrentAngle:  currentAngle,
		CapturedCount: len(session.Captures),
		AttemptsLeft:  cc.Config.MaxRetriesPerAngle - session.attempts[session.AngleIndex],
	}, nil
}

func (cc *CaptureController) session(sessionID string) (*CaptureSession, error) {
	session, ok := cc.sessions[sessionID]
	if !ok {
		return nil, types.NewVerificationError(types.CaptureError, "capture session not found")
	}
	return session, nil
}

func (cc *CaptureController) failAngle(session *CaptureSession, verr *types.VerificationError) *types.VerificationError {
	session.State = StateAngleFailed
	session.LastError = verr
	session.lastFailureAt[session.AngleIndex] = cc.clock()
	return verr
}
