package verification

import (
	"context"
	"math"
	"testing"
)

func TestHaversineMeters(t *testing.T) {
	if d := HaversineMeters(6.5244, 3.3792, 6.5244, 3.3792); d != 0 {
		t.Fatalf("identical coordinates should be 0 metres apart, got %v", d)
	}
	// one degree of longitude at the equator is roughly 111.2km
	d := HaversineMeters(0, 0, 0, 1)
	if math.Abs(d-111_195) > 1_200 {
		t.Fatalf("expected ~111195m for one equatorial degree, got %v", d)
	}
}

func TestGeofenceCheck(t *testing.T) {
	checker := NewGeofenceLocationChecker()
	site := Worksite{Latitude: 6.5244, Longitude: 3.3792, RadiusMeters: 100}

	tests := []struct {
		name       string
		sample     LocationSample
		inFence    bool
		confidence float64
	}{
		{
			"at the site with a sharp fix",
			LocationSample{Latitude: 6.5244, Longitude: 3.3792, AccuracyMeters: 20},
			true,
			0.9,
		},
		{
			"at the site with a fix at the accuracy ceiling",
			LocationSample{Latitude: 6.5244, Longitude: 3.3792, AccuracyMeters: 100},
			true,
			0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checker.Check(context.Background(), tt.sample, site)
			if result.Step != StepLocation {
				t.Fatalf("expected the location step, got %s", result.Step)
			}
			if result.Success != tt.inFence {
				t.Fatalf("expected inFence=%v, got %v", tt.inFence, result.Success)
			}
			if math.Abs(result.Confidence-tt.confidence) > 1e-9 {
				t.Fatalf("expected confidence %v, got %v", tt.confidence, result.Confidence)
			}
		})
	}
}

func TestGeofenceCheckOutsideFence(t *testing.T) {
	checker := NewGeofenceLocationChecker()
	site := Worksite{Latitude: 6.5244, Longitude: 3.3792, RadiusMeters: 100}
	sample := LocationSample{Latitude: 6.6, Longitude: 3.5, AccuracyMeters: 20}

	result := checker.Check(context.Background(), sample, site)
	if result.Success {
		t.Fatal("a sample kilometres away must not pass the fence")
	}
	if result.Confidence <= 0 || result.Confidence >= 0.5 {
		t.Fatalf("an out-of-fence sample should score low but non-zero, got %v", result.Confidence)
	}
}

func TestGeofenceCheckZeroRadius(t *testing.T) {
	checker := NewGeofenceLocationChecker()
	site := Worksite{Latitude: 6.5244, Longitude: 3.3792}
	sample := LocationSample{Latitude: 6.5244, Longitude: 3.3792, AccuracyMeters: 5}

	if result := checker.Check(context.Background(), sample, site); result.Success {
		t.Fatal("a site without a fence radius can never pass the location step")
	}
}
