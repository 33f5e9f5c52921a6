package verification

import (
	"context"
	"math"
	"testing"
	"time"

	"shiftguard.io/infrastructure/biometric/types"
)

type stubLocation struct {
	result StepResult
	calls  int
}

func (s *stubLocation) Check(ctx context.Context, sample LocationSample, site Worksite) StepResult {
	s.calls++
	return s.result
}

type stubFace struct {
	result StepResult
	calls  int
}

func (s *stubFace) Verify(ctx context.Context, userID string, probe FaceProbe) StepResult {
	s.calls++
	return s.result
}

type recordingAudit struct {
	flows     []VerificationFlowSummary
	overrides []string
}

func (r *recordingAudit) RecordFlow(userID string, deviceID string, summary VerificationFlowSummary) {
	r.flows = append(r.flows, summary)
}

func (r *recordingAudit) RecordOverride(userID string, deviceID string, reason string, summary VerificationFlowSummary) {
	r.overrides = append(r.overrides, reason)
}

func locationPass(confidence float64) StepResult {
	return StepResult{Step: StepLocation, Success: true, Confidence: confidence}
}

func locationFail(confidence float64) StepResult {
	return StepResult{Step: StepLocation, Success: false, Confidence: confidence}
}

func facePass(confidence float64) StepResult {
	return StepResult{Step: StepFace, Success: true, Confidence: confidence}
}

func faceHardFail(kind types.ErrorKind) StepResult {
	return StepResult{Step: StepFace, Success: false, Err: types.NewVerificationError(kind, "step failed")}
}

func newTestOrchestrator(location LocationChecker, face FaceVerifier, audit AuditSink) *Orchestrator {
	orchestrator := NewOrchestrator(location, face, audit)
	orchestrator.RetryDelay = time.Millisecond
	return orchestrator
}

func bothStepsConfig() VerificationConfig {
	return VerificationConfig{
		RequireLocation:     true,
		RequireFace:         true,
		MaxRetries:          2,
		ConfidenceThreshold: 0.7,
	}
}

func fullRequest() VerificationRequest {
	return VerificationRequest{
		UserID:   "user-1",
		DeviceID: "device-1",
		Site:     Worksite{Latitude: 6.5244, Longitude: 3.3792, RadiusMeters: 100},
		Location: &LocationSample{Latitude: 6.5244, Longitude: 3.3792, AccuracyMeters: 20},
		Probe:    &FaceProbe{Encoding: "[1,0,0]", Liveness: true},
	}
}

func assertStepPrefix(t *testing.T, completed []string) {
	t.Helper()
	order := []string{StepLocation, StepFace}
	if len(completed) > len(order) {
		t.Fatalf("too many completed steps: %v", completed)
	}
	for i, step := range completed {
		if step != order[i] {
			t.Fatalf("completed steps %v are not a prefix of %v", completed, order)
		}
	}
}

func TestRunVerifiesBothSteps(t *testing.T) {
	audit := &recordingAudit{}
	orchestrator := newTestOrchestrator(&stubLocation{result: locationPass(0.9)}, &stubFace{result: facePass(0.85)}, audit)

	summary, err := orchestrator.Run(context.Background(), bothStepsConfig(), fullRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Outcome != OutcomeVerified {
		t.Fatalf("expected a verified outcome, got %+v", summary)
	}
	if math.Abs(summary.ConfidenceScore-87) > 1e-9 {
		t.Fatalf("expected a combined score of 87, got %v", summary.ConfidenceScore)
	}
	if summary.FallbackMode || summary.ManagerOverride || summary.FailureKind != nil {
		t.Fatalf("clean pass should carry no degradation markers: %+v", summary)
	}
	assertStepPrefix(t, summary.CompletedSteps)
	if len(summary.CompletedSteps) != 2 {
		t.Fatalf("both steps should have completed, got %v", summary.CompletedSteps)
	}
	if len(audit.flows) != 1 || len(audit.overrides) != 0 {
		t.Fatalf("expected exactly one flow audit, got %d flows and %d overrides", len(audit.flows), len(audit.overrides))
	}
}

func TestRunLocationFallback(t *testing.T) {
	audit := &recordingAudit{}
	orchestrator := newTestOrchestrator(&stubLocation{result: locationFail(0.2)}, &stubFace{result: facePass(0.9)}, audit)

	config := bothStepsConfig()
	config.AllowLocationFallback = true
	config.ConfidenceThreshold = 0.5

	summary, err := orchestrator.Run(context.Background(), config, fullRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summary.FallbackMode {
		t.Fatal("a failed location step with fallback enabled should mark the flow degraded")
	}
	// the degraded location keeps a 0.2 weight against the face's 0.8
	want := 100 * (0.2*0.2 + 0.9*0.8)
	if math.Abs(summary.ConfidenceScore-want) > 1e-9 {
		t.Fatalf("expected score %v, got %v", want, summary.ConfidenceScore)
	}
	if summary.Outcome != OutcomeVerified {
		t.Fatalf("expected the degraded flow to still verify, got %+v", summary)
	}
	assertStepPrefix(t, summary.CompletedSteps)
}

func TestRunFailsWithoutLocationFallback(t *testing.T) {
	audit := &recordingAudit{}
	face := &stubFace{result: facePass(0.9)}
	orchestrator := newTestOrchestrator(&stubLocation{result: locationFail(0.1)}, face, audit)

	summary, err := orchestrator.Run(context.Background(), bothStepsConfig(), fullRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Outcome != OutcomeFailed {
		t.Fatalf("expected a failed outcome, got %+v", summary)
	}
	if summary.FailureKind == nil || *summary.FailureKind != types.LocationRequiredFailure {
		t.Fatalf("expected a location failure kind, got %v", summary.FailureKind)
	}
	if face.calls != 0 {
		t.Fatal("the face step must not run after a terminal location failure")
	}
	assertStepPrefix(t, summary.CompletedSteps)
	if len(summary.CompletedSteps) != 1 {
		t.Fatalf("only the location step should have completed, got %v", summary.CompletedSteps)
	}
}

func TestRunManagerOverride(t *testing.T) {
	audit := &recordingAudit{}
	orchestrator := newTestOrchestrator(&stubLocation{result: locationFail(0.1)}, &stubFace{result: facePass(0.9)}, audit)

	config := bothStepsConfig()
	config.ConfidenceThreshold = 0.5
	request := fullRequest()
	request.ManagerOverride = true
	request.OverrideReason = "GPS outage at the depot"

	summary, err := orchestrator.Run(context.Background(), config, request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summary.ManagerOverride || summary.OverrideReason != request.OverrideReason {
		t.Fatalf("override should be visible on the summary: %+v", summary)
	}
	if summary.Outcome != OutcomeVerified {
		t.Fatalf("expected the overridden flow to verify, got %+v", summary)
	}
	// the override gates the flow forward but the weak location reading still
	// drags the combined score
	want := 100 * (0.1*0.4 + 0.9*0.6)
	if math.Abs(summary.ConfidenceScore-want) > 1e-9 {
		t.Fatalf("expected score %v, got %v", want, summary.ConfidenceScore)
	}
	if len(audit.overrides) != 1 || audit.overrides[0] != request.OverrideReason {
		t.Fatalf("the override must be audited, got %v", audit.overrides)
	}
	if len(audit.flows) != 1 {
		t.Fatalf("expected exactly one flow audit, got %d", len(audit.flows))
	}
}

func TestRunSharesRetryBudgetAcrossSteps(t *testing.T) {
	audit := &recordingAudit{}
	face := &stubFace{result: faceHardFail(types.NetworkError)}
	orchestrator := newTestOrchestrator(&stubLocation{result: locationPass(0.9)}, face, audit)

	config := bothStepsConfig()
	config.MaxRetries = 2

	summary, err := orchestrator.Run(context.Background(), config, fullRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if face.calls != 3 {
		t.Fatalf("expected the initial attempt plus two retries, got %d calls", face.calls)
	}
	if summary.Outcome != OutcomeFailed || summary.FailureKind == nil || *summary.FailureKind != types.NetworkError {
		t.Fatalf("expected a network failure outcome, got %+v", summary)
	}
}

func TestRunNeverRetriesSpoofing(t *testing.T) {
	audit := &recordingAudit{}
	face := &stubFace{result: faceHardFail(types.SpoofingDetected)}
	orchestrator := newTestOrchestrator(&stubLocation{result: locationPass(0.9)}, face, audit)

	config := bothStepsConfig()
	config.AllowFaceFallback = true

	summary, err := orchestrator.Run(context.Background(), config, fullRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if face.calls != 1 {
		t.Fatalf("spoofing must not be retried, got %d calls", face.calls)
	}
	if summary.Outcome != OutcomeFailed || summary.FailureKind == nil || *summary.FailureKind != types.SpoofingDetected {
		t.Fatalf("spoofing must terminate the flow even with fallback enabled, got %+v", summary)
	}
}

func TestRunFaceFallbackOnTransportFailure(t *testing.T) {
	audit := &recordingAudit{}
	orchestrator := newTestOrchestrator(&stubLocation{result: locationPass(0.9)}, &stubFace{result: faceHardFail(types.NetworkError)}, audit)

	config := bothStepsConfig()
	config.AllowFaceFallback = true
	config.MaxRetries = 0

	summary, err := orchestrator.Run(context.Background(), config, fullRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summary.FallbackMode {
		t.Fatal("a transport failure with fallback enabled should degrade, not fail")
	}
	want := 100 * (0.9 * 0.8)
	if math.Abs(summary.ConfidenceScore-want) > 1e-9 {
		t.Fatalf("expected score %v, got %v", want, summary.ConfidenceScore)
	}
	if summary.Outcome != OutcomeVerified {
		t.Fatalf("expected a degraded verification, got %+v", summary)
	}
}

func TestRunLowConfidence(t *testing.T) {
	audit := &recordingAudit{}
	orchestrator := newTestOrchestrator(&stubLocation{result: locationPass(0.5)}, &stubFace{result: facePass(0.5)}, audit)

	config := bothStepsConfig()
	config.ConfidenceThreshold = 0.9

	summary, err := orchestrator.Run(context.Background(), config, fullRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Outcome != OutcomeLowConfidence {
		t.Fatalf("expected a low confidence outcome, got %+v", summary)
	}
	if summary.FailureKind == nil || *summary.FailureKind != types.LowConfidence {
		t.Fatalf("expected a low confidence kind, got %v", summary.FailureKind)
	}
}

func TestRunWeakFaceMatchNeverVerifies(t *testing.T) {
	audit := &recordingAudit{}
	weakMatch := StepResult{Step: StepFace, Success: false, Confidence: 0.9}
	orchestrator := newTestOrchestrator(&stubLocation{result: locationPass(1)}, &stubFace{result: weakMatch}, audit)

	summary, err := orchestrator.Run(context.Background(), bothStepsConfig(), fullRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Outcome == OutcomeVerified {
		t.Fatalf("a failed face match must never verify, whatever the score: %+v", summary)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	audit := &recordingAudit{}
	orchestrator := newTestOrchestrator(&stubLocation{}, &stubFace{}, audit)

	summary, err := orchestrator.Run(context.Background(), VerificationConfig{}, fullRequest())
	if err == nil || summary != nil {
		t.Fatalf("expected a config error and no summary, got %v, %v", summary, err)
	}
	if len(audit.flows) != 0 {
		t.Fatal("nothing should be audited for a rejected config")
	}
}

func TestRunAbortsOnCancelledContext(t *testing.T) {
	audit := &recordingAudit{}
	orchestrator := newTestOrchestrator(&stubLocation{result: locationPass(0.9)}, &stubFace{result: facePass(0.9)}, audit)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := orchestrator.Run(ctx, bothStepsConfig(), fullRequest())
	if err == nil {
		t.Fatal("a cancelled context must surface as an error")
	}
	if summary == nil || summary.Outcome != OutcomeAborted {
		t.Fatalf("expected an aborted summary, got %+v", summary)
	}
	if len(audit.flows) != 1 {
		t.Fatalf("aborted flows are still audited, got %d", len(audit.flows))
	}
}

func TestRunFailsWhenProbeMissing(t *testing.T) {
	audit := &recordingAudit{}
	face := &stubFace{result: facePass(0.9)}
	orchestrator := newTestOrchestrator(&stubLocation{result: locationPass(0.9)}, face, audit)

	request := fullRequest()
	request.Probe = nil

	summary, err := orchestrator.Run(context.Background(), bothStepsConfig(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Outcome != OutcomeFailed || summary.FailureKind == nil || *summary.FailureKind != types.CaptureError {
		t.Fatalf("a missing probe should fail as a capture error, got %+v", summary)
	}
	if face.calls != 0 {
		t.Fatal("the face verifier must not run without a probe")
	}
	assertStepPrefix(t, summary.CompletedSteps)
}

func TestRunMissingLocationSampleCountsAsFailure(t *testing.T) {
	audit := &recordingAudit{}
	location := &stubLocation{result: locationPass(0.9)}
	orchestrator := newTestOrchestrator(location, &stubFace{result: facePass(0.9)}, audit)

	request := fullRequest()
	request.Location = nil

	summary, err := orchestrator.Run(context.Background(), bothStepsConfig(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Outcome != OutcomeFailed || summary.FailureKind == nil || *summary.FailureKind != types.LocationRequiredFailure {
		t.Fatalf("a missing sample should fail the required location step, got %+v", summary)
	}
	if location.calls != 0 {
		t.Fatal("the checker must not run without a sample")
	}
}

func TestRunFaceOnlyConfig(t *testing.T) {
	audit := &recordingAudit{}
	orchestrator := newTestOrchestrator(&stubLocation{}, &stubFace{result: facePass(0.9)}, audit)

	config := VerificationConfig{RequireFace: true, ConfidenceThreshold: 0.7}
	summary, err := orchestrator.Run(context.Background(), config, fullRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Outcome != OutcomeVerified {
		t.Fatalf("expected a face-only verification, got %+v", summary)
	}
	if math.Abs(summary.ConfidenceScore-90) > 1e-9 {
		t.Fatalf("face-only score should be the face confidence, got %v", summary.ConfidenceScore)
	}
	if len(summary.CompletedSteps) != 1 || summary.CompletedSteps[0] != StepFace {
		t.Fatalf("only the face step should have run, got %v", summary.CompletedSteps)
	}
}
