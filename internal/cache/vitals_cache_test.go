package cache

import (
	"context"
	"testing"
	"time"

	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*VitalsCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	log, err := logger.New(logger.Config{Level: logger.ERROR})
	require.NoError(t, err)

	return NewWithClient(client, 10*time.Minute, log), mr
}

func TestVitalsCacheLatestReadingRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	hr := 72
	abp := "110/70"
	reading := &models.VitalsReading{
		SubjectID:  3,
		Timestamp:  time.Unix(1700000000, 0).UTC(),
		Source:     "camera",
		HeartRate:  &hr,
		ArterialBP: &abp,
	}

	require.NoError(t, c.SetLatestReading(ctx, reading))

	got, err := c.GetLatestReading(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.SubjectID)
	assert.Equal(t, 72, *got.HeartRate)
	assert.Equal(t, "110/70", *got.ArterialBP)
	assert.Nil(t, got.Pulse)
}

func TestVitalsCacheMissReturnsNil(t *testing.T) {
	c, _ := newTestCache(t)

	got, err := c.GetLatestReading(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestVitalsCacheSnapshotExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	hr := 72
	require.NoError(t, c.SetLatestReading(ctx, &models.VitalsReading{
		SubjectID: 3,
		Timestamp: time.Now(),
		HeartRate: &hr,
	}))

	mr.FastForward(11 * time.Minute)

	got, err := c.GetLatestReading(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestVitalsCacheActiveAlertsRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	alerts := []models.Alert{{
		ID:        "3-spo2-1700000000",
		SubjectID: 3,
		VitalKind: "spo2",
		Value:     85,
		Direction: models.DirectionLow,
		Severity:  models.SeverityCritical,
		Timestamp: time.Unix(1700000000, 0).UTC(),
	}}

	require.NoError(t, c.SetActiveAlerts(ctx, 3, alerts))

	got, err := c.GetActiveAlerts(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "3-spo2-1700000000", got[0].ID)
}

func TestVitalsCacheEmptyAlertSetRemovesKey(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	alerts := []models.Alert{{ID: "3-spo2-1700000000", SubjectID: 3, VitalKind: "spo2"}}
	require.NoError(t, c.SetActiveAlerts(ctx, 3, alerts))
	require.True(t, mr.Exists("ward:subject:3:alerts"))

	require.NoError(t, c.SetActiveAlerts(ctx, 3, nil))
	assert.False(t, mr.Exists("ward:subject:3:alerts"))

	got, err := c.GetActiveAlerts(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, got)
}
