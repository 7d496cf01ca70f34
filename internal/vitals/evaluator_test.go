package vitals

import (
	"testing"
	"time"

	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: logger.ERROR})
	require.NoError(t, err)
	return log
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	return NewEvaluator(DefaultRanges(), testLogger(t))
}

func TestEvaluateAllVitalsOutOfRange(t *testing.T) {
	e := newTestEvaluator(t)

	reading := &models.VitalsReading{
		SubjectID:      7,
		Timestamp:      time.Unix(1700000000, 0),
		HeartRate:      intPtr(45),
		Pulse:          intPtr(45),
		SpO2:           intPtr(85),
		ArterialBP:     strPtr("85/60"),
		PulmonaryAP:    strPtr("15/13"),
		EtCO2:          intPtr(50),
		AirwayRespRate: intPtr(25),
	}

	alerts := e.Evaluate(reading)
	require.Len(t, alerts, 7)

	expected := []struct {
		kind      string
		value     int
		direction string
		severity  string
	}{
		{KindHeartRate, 45, models.DirectionLow, models.SeverityCritical},
		{KindPulse, 45, models.DirectionLow, models.SeverityCritical},
		{KindSpO2, 85, models.DirectionLow, models.SeverityCritical},
		{KindArterialSystolic, 85, models.DirectionLow, models.SeverityWarning},
		{KindPulmonaryDiastolic, 13, models.DirectionHigh, models.SeverityWarning},
		{KindEtCO2, 50, models.DirectionHigh, models.SeverityWarning},
		{KindAirwayRespRate, 25, models.DirectionHigh, models.SeverityCritical},
	}

	for i, want := range expected {
		assert.Equal(t, want.kind, alerts[i].VitalKind, "alert %d kind", i)
		assert.Equal(t, want.value, alerts[i].Value, "alert %d value", i)
		assert.Equal(t, want.direction, alerts[i].Direction, "alert %d direction", i)
		assert.Equal(t, want.severity, alerts[i].Severity, "alert %d severity", i)
		assert.Equal(t, 7, alerts[i].SubjectID)
	}
}

func TestEvaluateInRangeProducesNothing(t *testing.T) {
	e := newTestEvaluator(t)

	reading := &models.VitalsReading{
		SubjectID:      1,
		Timestamp:      time.Now(),
		HeartRate:      intPtr(72),
		Pulse:          intPtr(72),
		SpO2:           intPtr(98),
		ArterialBP:     strPtr("110/70"),
		PulmonaryAP:    strPtr("20/8"),
		EtCO2:          intPtr(40),
		AirwayRespRate: intPtr(16),
	}

	assert.Empty(t, e.Evaluate(reading))
}

func TestEvaluateNormalBoundsAreInclusive(t *testing.T) {
	e := newTestEvaluator(t)

	reading := &models.VitalsReading{
		SubjectID: 1,
		Timestamp: time.Now(),
		HeartRate: intPtr(60),
		SpO2:      intPtr(90),
	}
	assert.Empty(t, e.Evaluate(reading))

	reading.HeartRate = intPtr(100)
	assert.Empty(t, e.Evaluate(reading))

	reading.HeartRate = intPtr(59)
	alerts := e.Evaluate(reading)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.DirectionLow, alerts[0].Direction)
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)

	reading.HeartRate = intPtr(101)
	alerts = e.Evaluate(reading)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.DirectionHigh, alerts[0].Direction)
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)
}

func TestEvaluateCriticalBoundary(t *testing.T) {
	e := newTestEvaluator(t)

	// 51 is below normal but above the critical floor.
	reading := &models.VitalsReading{
		SubjectID: 1,
		Timestamp: time.Now(),
		HeartRate: intPtr(51),
	}
	alerts := e.Evaluate(reading)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)

	// 50 sits on the critical floor itself.
	reading.HeartRate = intPtr(50)
	alerts = e.Evaluate(reading)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)

	reading.HeartRate = intPtr(120)
	alerts = e.Evaluate(reading)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.DirectionHigh, alerts[0].Direction)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
}

func TestEvaluateSpO2HighSideSuppressed(t *testing.T) {
	e := newTestEvaluator(t)

	reading := &models.VitalsReading{
		SubjectID: 1,
		Timestamp: time.Now(),
		SpO2:      intPtr(100),
	}
	assert.Empty(t, e.Evaluate(reading))

	// Garbage above the ceiling still must not fire a high alert.
	reading.SpO2 = intPtr(101)
	assert.Empty(t, e.Evaluate(reading))
}

func TestEvaluateAbsentFieldsSkipped(t *testing.T) {
	e := newTestEvaluator(t)

	reading := &models.VitalsReading{
		SubjectID: 1,
		Timestamp: time.Now(),
		HeartRate: intPtr(45),
	}

	alerts := e.Evaluate(reading)
	require.Len(t, alerts, 1)
	assert.Equal(t, KindHeartRate, alerts[0].VitalKind)
}

func TestEvaluateMalformedBloodPressureSkipped(t *testing.T) {
	e := newTestEvaluator(t)

	reading := &models.VitalsReading{
		SubjectID:   1,
		Timestamp:   time.Now(),
		ArterialBP:  strPtr("not-a-number/60"),
		PulmonaryAP: strPtr("30"),
	}

	// The systolic component is unparseable and the pulmonary string has
	// no diastolic component; both are treated as missing data.
	assert.Empty(t, e.Evaluate(reading))
}

func TestEvaluateCompoundComponents(t *testing.T) {
	e := newTestEvaluator(t)

	// Arterial uses the systolic (index 0), pulmonary the diastolic
	// (index 1). A trailing mean component is ignored.
	reading := &models.VitalsReading{
		SubjectID:   1,
		Timestamp:   time.Now(),
		ArterialBP:  strPtr("190/95/120"),
		PulmonaryAP: strPtr("30/22/25"),
	}

	alerts := e.Evaluate(reading)
	require.Len(t, alerts, 2)

	assert.Equal(t, KindArterialSystolic, alerts[0].VitalKind)
	assert.Equal(t, 190, alerts[0].Value)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)

	assert.Equal(t, KindPulmonaryDiastolic, alerts[1].VitalKind)
	assert.Equal(t, 22, alerts[1].Value)
	assert.Equal(t, models.SeverityCritical, alerts[1].Severity)
}

func TestEvaluateDeterministicAlertID(t *testing.T) {
	e := newTestEvaluator(t)

	reading := &models.VitalsReading{
		SubjectID: 42,
		Timestamp: time.Unix(1700000000, 0),
		HeartRate: intPtr(130),
	}

	first := e.Evaluate(reading)
	second := e.Evaluate(reading)
	require.Len(t, first, 1)
	require.Len(t, second, 1)

	assert.Equal(t, "42-heart_rate-1700000000", first[0].ID)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestEvaluateEmptyReading(t *testing.T) {
	e := newTestEvaluator(t)

	reading := &models.VitalsReading{SubjectID: 1, Timestamp: time.Now()}
	assert.True(t, reading.IsEmpty())
	assert.Empty(t, e.Evaluate(reading))
}
