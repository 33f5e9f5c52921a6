package verification

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"shiftguard.io/infrastructure/biometric/types"
	"shiftguard.io/infrastructure/logger"
)

const (
	normalLocationWeight   = 0.4
	normalFaceWeight       = 0.6
	degradedStepWeight     = 0.2
	degradedPartnerWeight  = 0.8
	defaultStepRetryDelay  = 200 * time.Millisecond
)

// VerificationRequest carries everything one flow needs. Site and samples
// come from the client; the override flag comes from a manager action and
// is audited separately.
type VerificationRequest struct {
	UserID          string
	DeviceID        string
	Site            Worksite
	Location        *LocationSample
	Probe           *FaceProbe
	ManagerOverride bool
	OverrideReason  string
}

// Orchestrator runs the sequential location then face flow. Steps share one
// retry budget so the worst-case flow duration is predictable.
type Orchestrator struct {
	Location   LocationChecker
	Face       FaceVerifier
	Audit      AuditSink
	RetryDelay time.Duration

	clock func() time.Time
}

func NewOrchestrator(location LocationChecker, face FaceVerifier, audit AuditSink) *Orchestrator {
	return &Orchestrator{
		Location:   location,
		Face:       face,
		Audit:      audit,
		RetryDelay: defaultStepRetryDelay,
		clock:      time.Now,
	}
}

// Run executes one verification flow and produces exactly one summary. A
// non-nil error is returned only for an invalid config or a cancelled
// context; every domain failure is an outcome on the summary, not an error.
func (o *Orchestrator) Run(ctx context.Context, config VerificationConfig, request VerificationRequest) (*VerificationFlowSummary, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	started := o.clock()
	budget := config.MaxRetries
	completed := []string{}
	fallbackMode := false
	degradedStep := ""
	overrideApplied := false

	var locationResult *StepResult
	var faceResult *StepResult

	finish := func(outcome string, failureKind *types.ErrorKind) *VerificationFlowSummary {
		summary := &VerificationFlowSummary{
			ConfidenceScore: o.combinedScore(config, locationResult, faceResult, degradedStep),
			TotalLatencyMs:  o.clock().Sub(started).Milliseconds(),
			FallbackMode:    fallbackMode,
			CompletedSteps:  completed,
			Outcome:         outcome,
			FailureKind:     failureKind,
			ManagerOverride: overrideApplied,
			OverrideReason:  request.OverrideReason,
			Timestamp:       o.clock(),
		}
		if o.Audit != nil {
			if overrideApplied {
				o.Audit.RecordOverride(request.UserID, request.DeviceID, request.OverrideReason, *summary)
			}
			o.Audit.RecordFlow(request.UserID, request.DeviceID, *summary)
		}
		logger.Info("verification flow completed", logger.LoggerOptions{
			Key:  "userID",
			Data: request.UserID,
		}, logger.LoggerOptions{
			Key:  "outcome",
			Data: outcome,
		}, logger.LoggerOptions{
			Key:  "confidenceScore",
			Data: summary.ConfidenceScore,
		})
		return summary
	}
	kindOf := func(err error) *types.ErrorKind {
		kind := types.KindOf(err)
		return &kind
	}

	if config.RequireLocation {
		result := o.runLocationStep(ctx, &budget, request)
		locationResult = &result
		completed = append(completed, StepLocation)

		if ctx.Err() != nil {
			return finish(OutcomeAborted, nil), ctx.Err()
		}
		if !result.Success {
			switch {
			case request.ManagerOverride:
				// the override forces the flow past the geofence gate but is
				// never folded into confidence scoring
				overrideApplied = true
			case config.AllowLocationFallback:
				fallbackMode = true
				degradedStep = StepLocation
			default:
				kind := types.LocationRequiredFailure
				return finish(OutcomeFailed, &kind), nil
			}
		}
	}

	if config.RequireFace {
		if request.Probe == nil {
			kind := types.CaptureError
			return finish(OutcomeFailed, &kind), nil
		}
		result := o.runStep(ctx, &budget, func(ctx context.Context) StepResult {
			return o.Face.Verify(ctx, request.UserID, *request.Probe)
		})
		faceResult = &result
		completed = append(completed, StepFace)

		if ctx.Err() != nil {
			return finish(OutcomeAborted, nil), ctx.Err()
		}
		if result.Err != nil {
			kind := types.KindOf(result.Err)
			// spoofing and integrity failures always terminate; a degraded
			// completion is only allowed for transport level failures when
			// the location step stands on its own
			recoverable := kind == types.NetworkError || kind == types.CaptureError
			if recoverable && config.AllowFaceFallback && locationResult != nil && locationResult.Success {
				fallbackMode = true
				degradedStep = StepFace
			} else {
				return finish(OutcomeFailed, kindOf(result.Err)), nil
			}
		}
	}

	score := o.combinedScore(config, locationResult, faceResult, degradedStep)
	stepsStand := true
	if faceResult != nil && faceResult.Err == nil && !faceResult.Success && degradedStep != StepFace {
		stepsStand = false
	}
	if stepsStand && score/100 >= config.ConfidenceThreshold {
		return finish(OutcomeVerified, nil), nil
	}
	kind := types.LowConfidence
	return finish(OutcomeLowConfidence, &kind), nil
}

func (o *Orchestrator) runLocationStep(ctx context.Context, budget *int, request VerificationRequest) StepResult {
	if request.Location == nil {
		return StepResult{Step: StepLocation, Success: false, Confidence: 0}
	}
	return o.runStep(ctx, budget, func(ctx context.Context) StepResult {
		return o.Location.Check(ctx, *request.Location, request.Site)
	})
}

// runStep retries transient failures against the flow's shared budget.
// Spoofing, integrity and conflict failures are never retried.
func (o *Orchestrator) runStep(ctx context.Context, budget *int, attempt func(ctx context.Context) StepResult) StepResult {
	var result StepResult
	backoff := retry.NewConstant(o.RetryDelay)
	retry.Do(ctx, retry.WithMaxRetries(uint64(*budget), backoff), func(ctx context.Context) error {
		result = attempt(ctx)
		if result.Err != nil && *budget > 0 && retryableKind(types.KindOf(result.Err)) {
			*budget--
			return retry.RetryableError(result.Err)
		}
		return nil
	})
	return result
}

func retryableKind(kind types.ErrorKind) bool {
	switch kind {
	case types.NetworkError, types.CaptureError, types.QualityRejected:
		return true
	}
	return false
}

// combinedScore weights per-step confidences into the [0,100] flow score. A
// degraded step keeps a reduced weight so a fallback completion is visibly
// less certain than a clean one.
func (o *Orchestrator) combinedScore(config VerificationConfig, locationResult *StepResult, faceResult *StepResult, degradedStep string) float64 {
	locationConfidence := 0.0
	faceConfidence := 0.0
	if locationResult != nil {
		locationConfidence = locationResult.Confidence
	}
	if faceResult != nil {
		faceConfidence = faceResult.Confidence
	}

	switch {
	case config.RequireLocation && config.RequireFace:
		locationWeight := normalLocationWeight
		faceWeight := normalFaceWeight
		if degradedStep == StepLocation {
			locationWeight = degradedStepWeight
			faceWeight = degradedPartnerWeight
		}
		if degradedStep == StepFace {
			locationWeight = degradedPartnerWeight
			faceWeight = degradedStepWeight
		}
		return 100 * (locationConfidence*locationWeight + faceConfidence*faceWeight)
	case config.RequireLocation:
		return 100 * locationConfidence
	default:
		return 100 * faceConfidence
	}
}
