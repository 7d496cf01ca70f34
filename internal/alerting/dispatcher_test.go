package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"WardMonitorAPI/internal/config"
	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"
	"WardMonitorAPI/internal/vitals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBroadcaster struct {
	mu       sync.Mutex
	messages []models.WSMessage
}

func (b *stubBroadcaster) Publish(topic string, msg models.WSMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
}

func (b *stubBroadcaster) byType(msgType string) []models.WSMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.WSMessage
	for _, m := range b.messages {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type stubMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *stubMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *stubMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type stubDirectory struct {
	name  string
	email string
	err   error
}

func (d *stubDirectory) LookupName(ctx context.Context, subjectID int) (string, error) {
	return d.name, d.err
}

func (d *stubDirectory) LookupNotifyEmail(ctx context.Context, subjectID int) (string, error) {
	return d.email, d.err
}

func dispatcherLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: logger.ERROR})
	require.NoError(t, err)
	return log
}

func testAlertingConfig() config.AlertingConfig {
	return config.AlertingConfig{
		EmailEnabled:     true,
		BroadcastEnabled: true,
		EmailCooldown:    5 * time.Minute,
		EmailTimeout:     time.Second,
		CareTeamEmail:    "care-team@ward.test",
	}
}

func testReading(subjectID int, hr int) (*models.VitalsReading, []models.Alert) {
	reading := &models.VitalsReading{
		SubjectID: subjectID,
		Timestamp: time.Unix(1700000000, 0),
		HeartRate: &hr,
	}
	alert := models.Alert{
		ID:        vitals.AlertID(subjectID, vitals.KindHeartRate, reading.Timestamp.Unix()),
		SubjectID: subjectID,
		VitalKind: vitals.KindHeartRate,
		Value:     hr,
		Direction: models.DirectionLow,
		Severity:  models.SeverityCritical,
		Timestamp: reading.Timestamp,
	}
	return reading, []models.Alert{alert}
}

func TestDispatchBroadcastsToBothTopics(t *testing.T) {
	broadcaster := &stubBroadcaster{}
	mailer := &stubMailer{}
	d := NewDispatcher(broadcaster, mailer, &stubDirectory{}, NewRateLimiter(5*time.Minute), testAlertingConfig(), dispatcherLogger(t))

	reading, alerts := testReading(3, 40)
	d.Dispatch(context.Background(), reading, alerts)

	readings := broadcaster.byType(models.WSTypeReading)
	require.Len(t, readings, 2)
	assert.Equal(t, SubjectTopic(3), readings[0].Topic)
	assert.Equal(t, TopicGlobal, readings[1].Topic)

	alertMsgs := broadcaster.byType(models.WSTypeAlert)
	require.Len(t, alertMsgs, 2)
}

func TestDispatchEmailCooldown(t *testing.T) {
	broadcaster := &stubBroadcaster{}
	mailer := &stubMailer{}
	d := NewDispatcher(broadcaster, mailer, &stubDirectory{}, NewRateLimiter(5*time.Minute), testAlertingConfig(), dispatcherLogger(t))

	clock := time.Unix(1700000000, 0)
	d.now = func() time.Time { return clock }

	reading, alerts := testReading(3, 40)

	// Three readings a minute apart, each re-raising the same alert: one
	// email, three rounds of broadcasts.
	for i := 0; i < 3; i++ {
		d.Dispatch(context.Background(), reading, alerts)
		clock = clock.Add(time.Minute)
	}

	assert.Equal(t, 1, mailer.count())
	assert.Len(t, broadcaster.byType(models.WSTypeAlert), 6)

	// Past the cooldown the pair may page again.
	clock = clock.Add(5 * time.Minute)
	d.Dispatch(context.Background(), reading, alerts)
	assert.Equal(t, 2, mailer.count())
}

func TestDispatchCooldownIsPerVitalKind(t *testing.T) {
	broadcaster := &stubBroadcaster{}
	mailer := &stubMailer{}
	d := NewDispatcher(broadcaster, mailer, &stubDirectory{}, NewRateLimiter(5*time.Minute), testAlertingConfig(), dispatcherLogger(t))

	reading, alerts := testReading(3, 40)
	spo2 := 80
	reading.SpO2 = &spo2
	alerts = append(alerts, models.Alert{
		ID:        vitals.AlertID(3, vitals.KindSpO2, reading.Timestamp.Unix()),
		SubjectID: 3,
		VitalKind: vitals.KindSpO2,
		Value:     spo2,
		Direction: models.DirectionLow,
		Severity:  models.SeverityCritical,
		Timestamp: reading.Timestamp,
	})

	d.Dispatch(context.Background(), reading, alerts)

	// Both kinds page on the first dispatch, neither on the second.
	assert.Equal(t, 2, mailer.count())
	d.Dispatch(context.Background(), reading, alerts)
	assert.Equal(t, 2, mailer.count())
}

func TestDispatchFailedSendRetriesImmediately(t *testing.T) {
	broadcaster := &stubBroadcaster{}
	mailer := &stubMailer{err: errors.New("smtp down")}
	d := NewDispatcher(broadcaster, mailer, &stubDirectory{}, NewRateLimiter(5*time.Minute), testAlertingConfig(), dispatcherLogger(t))

	reading, alerts := testReading(3, 40)
	d.Dispatch(context.Background(), reading, alerts)
	assert.Equal(t, 0, mailer.count())

	// The failure was not recorded, so recovery delivers straight away.
	mailer.err = nil
	d.Dispatch(context.Background(), reading, alerts)
	assert.Equal(t, 1, mailer.count())
}

func TestDispatchEmailFailureDoesNotGateBroadcast(t *testing.T) {
	broadcaster := &stubBroadcaster{}
	mailer := &stubMailer{err: errors.New("smtp down")}
	d := NewDispatcher(broadcaster, mailer, &stubDirectory{}, NewRateLimiter(5*time.Minute), testAlertingConfig(), dispatcherLogger(t))

	reading, alerts := testReading(3, 40)
	d.Dispatch(context.Background(), reading, alerts)

	assert.Len(t, broadcaster.byType(models.WSTypeAlert), 2)
	assert.Len(t, broadcaster.byType(models.WSTypeReading), 2)
}

func TestDispatchNotifyEmailOverride(t *testing.T) {
	broadcaster := &stubBroadcaster{}
	mailer := &stubMailer{}
	dir := &stubDirectory{name: "Bed 12", email: "night-shift@ward.test"}
	d := NewDispatcher(broadcaster, mailer, dir, NewRateLimiter(5*time.Minute), testAlertingConfig(), dispatcherLogger(t))

	reading, alerts := testReading(3, 40)
	d.Dispatch(context.Background(), reading, alerts)

	require.Equal(t, 1, mailer.count())
	assert.Equal(t, "night-shift@ward.test", mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].subject, "Bed 12")
}

func TestDispatchFallsBackToCareTeamAndPlaceholderName(t *testing.T) {
	broadcaster := &stubBroadcaster{}
	mailer := &stubMailer{}
	dir := &stubDirectory{err: errors.New("directory down")}
	d := NewDispatcher(broadcaster, mailer, dir, NewRateLimiter(5*time.Minute), testAlertingConfig(), dispatcherLogger(t))

	reading, alerts := testReading(9, 40)
	d.Dispatch(context.Background(), reading, alerts)

	require.Equal(t, 1, mailer.count())
	assert.Equal(t, "care-team@ward.test", mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].subject, "Subject 9")
}

func TestDispatchChannelsCanBeDisabled(t *testing.T) {
	broadcaster := &stubBroadcaster{}
	mailer := &stubMailer{}

	cfg := testAlertingConfig()
	cfg.EmailEnabled = false
	cfg.BroadcastEnabled = false

	d := NewDispatcher(broadcaster, mailer, &stubDirectory{}, NewRateLimiter(5*time.Minute), cfg, dispatcherLogger(t))

	reading, alerts := testReading(3, 40)
	d.Dispatch(context.Background(), reading, alerts)

	assert.Empty(t, broadcaster.messages)
	assert.Equal(t, 0, mailer.count())
}

func TestDispatchNoAlertsStillBroadcastsReading(t *testing.T) {
	broadcaster := &stubBroadcaster{}
	mailer := &stubMailer{}
	d := NewDispatcher(broadcaster, mailer, &stubDirectory{}, NewRateLimiter(5*time.Minute), testAlertingConfig(), dispatcherLogger(t))

	hr := 72
	reading := &models.VitalsReading{
		SubjectID: 3,
		Timestamp: time.Unix(1700000000, 0),
		HeartRate: &hr,
	}

	d.Dispatch(context.Background(), reading, nil)

	assert.Len(t, broadcaster.byType(models.WSTypeReading), 2)
	assert.Equal(t, 0, mailer.count())
}
