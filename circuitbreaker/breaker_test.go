package circuitbreaker

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestUnknownProviderIsHealthy(t *testing.T) {
	tr := New(zap.NewNop())
	assert.True(t, tr.IsHealthy("unknown"))
}

func TestOpensAfterThresholdExceeded(t *testing.T) {
	tr := New(zap.NewNop(), WithThreshold(3))

	for i := 0; i < 3; i++ {
		tr.RecordFailure("P1")
		assert.True(t, tr.IsHealthy("P1"), "threshold not yet exceeded at failure %d", i+1)
	}
	tr.RecordFailure("P1")
	assert.False(t, tr.IsHealthy("P1"), "threshold strictly exceeded on 4th failure")
}

func TestRecordSuccessClosesImmediately(t *testing.T) {
	tr := New(zap.NewNop(), WithThreshold(1))
	tr.RecordFailure("P1")
	tr.RecordFailure("P1")
	assert.False(t, tr.IsHealthy("P1"))

	tr.RecordSuccess("P1")
	assert.True(t, tr.IsHealthy("P1"))
}

func TestCooldownLazilyCloses(t *testing.T) {
	tr := New(zap.NewNop(), WithThreshold(0), WithCooldown(10*time.Millisecond))
	tr.RecordFailure("P1")
	assert.False(t, tr.IsHealthy("P1"))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, tr.IsHealthy("P1"), "cooldown elapsed, breaker should auto-close")
}

func TestFailuresOutsideWindowDoNotAccumulate(t *testing.T) {
	tr := New(zap.NewNop(), WithThreshold(1), WithWindow(10*time.Millisecond))
	tr.RecordFailure("P1")
	time.Sleep(20 * time.Millisecond)
	tr.RecordFailure("P1")

	assert.True(t, tr.IsHealthy("P1"), "stale failure should have been pruned from the window")
}

// Feature: health-tracker, Property: a success always leaves the provider
// healthy, regardless of any prior sequence of failures.
func TestProperty_SuccessAlwaysClosesBreaker(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("record_success always yields is_healthy == true", prop.ForAll(
		func(failureCount int) bool {
			tr := New(zap.NewNop(), WithThreshold(3))
			for i := 0; i < failureCount; i++ {
				tr.RecordFailure("P1")
			}
			tr.RecordSuccess("P1")
			return tr.IsHealthy("P1")
		},
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}

// Feature: health-tracker, Property: the breaker opens if and only if the
// number of failures recorded strictly exceeds the threshold.
func TestProperty_ThresholdIsStrict(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("healthy iff failures <= threshold", prop.ForAll(
		func(threshold, failureCount int) bool {
			tr := New(zap.NewNop(), WithThreshold(threshold))
			for i := 0; i < failureCount; i++ {
				tr.RecordFailure("P1")
			}
			wantHealthy := failureCount <= threshold
			return tr.IsHealthy("P1") == wantHealthy
		},
		gen.IntRange(0, 10),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
