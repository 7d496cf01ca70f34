package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"WardMonitorAPI/internal/alerting"
	"WardMonitorAPI/internal/config"
	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"
	"WardMonitorAPI/internal/vitals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReadingRepo struct {
	inserted  []*models.VitalsReading
	insertErr error
}

func (f *fakeReadingRepo) Insert(ctx context.Context, reading *models.VitalsReading) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	reading.ReadingID = len(f.inserted) + 1
	f.inserted = append(f.inserted, reading)
	return nil
}

func (f *fakeReadingRepo) Query(ctx context.Context, req *models.ReadingQueryRequest) ([]models.VitalsReading, int, error) {
	return nil, 0, nil
}

func (f *fakeReadingRepo) GetLatest(ctx context.Context, subjectID int) (*models.VitalsReading, error) {
	for i := len(f.inserted) - 1; i >= 0; i-- {
		if f.inserted[i].SubjectID == subjectID {
			return f.inserted[i], nil
		}
	}
	return nil, nil
}

type fakeSubjectRepo struct {
	known   map[int]*models.Subject
	ensured []int
}

func (f *fakeSubjectRepo) Create(ctx context.Context, subject *models.Subject) error { return nil }

func (f *fakeSubjectRepo) GetByID(ctx context.Context, subjectID int) (*models.Subject, error) {
	return f.known[subjectID], nil
}

func (f *fakeSubjectRepo) GetByMRN(ctx context.Context, mrn string) (*models.Subject, error) {
	return nil, nil
}

func (f *fakeSubjectRepo) GetAll(ctx context.Context) ([]models.Subject, error) { return nil, nil }

func (f *fakeSubjectRepo) Update(ctx context.Context, subjectID int, updates *models.UpdateSubjectRequest) error {
	return nil
}

func (f *fakeSubjectRepo) Delete(ctx context.Context, subjectID int) error { return nil }

func (f *fakeSubjectRepo) EnsureExists(ctx context.Context, subjectID int) error {
	f.ensured = append(f.ensured, subjectID)
	return nil
}

type fakeAlertRepo struct {
	created []models.Alert
}

func (f *fakeAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	f.created = append(f.created, *alert)
	return nil
}

func (f *fakeAlertRepo) GetHistory(ctx context.Context, limit, offset int) ([]models.Alert, error) {
	return f.created, nil
}

func (f *fakeAlertRepo) GetBySubject(ctx context.Context, subjectID int, limit int) ([]models.Alert, error) {
	return nil, nil
}

func (f *fakeAlertRepo) Acknowledge(ctx context.Context, rowID int) error { return nil }

func (f *fakeAlertRepo) DeleteOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

type recordingBroadcaster struct {
	messages []models.WSMessage
}

func (b *recordingBroadcaster) Publish(topic string, msg models.WSMessage) {
	b.messages = append(b.messages, msg)
}

type recordingMailer struct {
	sent int
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.sent++
	return nil
}

type noopDirectory struct{}

func (noopDirectory) LookupName(ctx context.Context, subjectID int) (string, error) {
	return "", errors.New("no directory")
}

func (noopDirectory) LookupNotifyEmail(ctx context.Context, subjectID int) (string, error) {
	return "", errors.New("no directory")
}

type pipeline struct {
	svc         *ReadingService
	readings    *fakeReadingRepo
	subjects    *fakeSubjectRepo
	alerts      *fakeAlertRepo
	store       *alerting.SubjectAlertStore
	broadcaster *recordingBroadcaster
	mailer      *recordingMailer
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	log, err := logger.New(logger.Config{Level: logger.ERROR})
	require.NoError(t, err)

	p := &pipeline{
		readings:    &fakeReadingRepo{},
		subjects:    &fakeSubjectRepo{known: map[int]*models.Subject{}},
		alerts:      &fakeAlertRepo{},
		store:       alerting.NewSubjectAlertStore(),
		broadcaster: &recordingBroadcaster{},
		mailer:      &recordingMailer{},
	}

	cfg := config.AlertingConfig{
		EmailEnabled:     true,
		BroadcastEnabled: true,
		EmailCooldown:    5 * time.Minute,
		EmailTimeout:     time.Second,
		CareTeamEmail:    "care-team@ward.test",
	}

	dispatcher := alerting.NewDispatcher(
		p.broadcaster, p.mailer, noopDirectory{},
		alerting.NewRateLimiter(cfg.EmailCooldown), cfg, log)

	evaluator := vitals.NewEvaluator(vitals.DefaultRanges(), log)

	p.svc = NewReadingService(
		p.readings, p.subjects, p.alerts, nil, evaluator, p.store, dispatcher, log)

	return p
}

func TestIngestOutOfRangeReading(t *testing.T) {
	p := newPipeline(t)

	hr := 45
	reading := &models.VitalsReading{
		SubjectID: 3,
		Timestamp: time.Unix(1700000000, 0),
		Source:    "camera",
		HeartRate: &hr,
	}

	require.NoError(t, p.svc.Ingest(context.Background(), reading))

	require.Len(t, p.readings.inserted, 1)
	require.Len(t, p.alerts.created, 1)
	assert.Equal(t, "3-heart_rate-1700000000", p.alerts.created[0].ID)

	active := p.store.Get(3)
	require.Len(t, active, 1)
	assert.Equal(t, models.SeverityCritical, active[0].Severity)

	assert.Equal(t, 1, p.mailer.sent)
	// One reading message and one alert message, each to both topics.
	assert.Len(t, p.broadcaster.messages, 4)
}

func TestIngestRecoveryClearsAlertSet(t *testing.T) {
	p := newPipeline(t)

	hr := 45
	require.NoError(t, p.svc.Ingest(context.Background(), &models.VitalsReading{
		SubjectID: 3,
		Timestamp: time.Unix(1700000000, 0),
		HeartRate: &hr,
	}))
	require.Len(t, p.store.Get(3), 1)

	recovered := 72
	require.NoError(t, p.svc.Ingest(context.Background(), &models.VitalsReading{
		SubjectID: 3,
		Timestamp: time.Unix(1700000060, 0),
		HeartRate: &recovered,
	}))

	assert.Nil(t, p.store.Get(3))
}

func TestIngestEmptyReadingKeepsAlertSet(t *testing.T) {
	p := newPipeline(t)

	hr := 45
	require.NoError(t, p.svc.Ingest(context.Background(), &models.VitalsReading{
		SubjectID: 3,
		Timestamp: time.Unix(1700000000, 0),
		HeartRate: &hr,
	}))
	require.Len(t, p.store.Get(3), 1)

	// A blank frame stores the reading but must not wipe the live set.
	require.NoError(t, p.svc.Ingest(context.Background(), &models.VitalsReading{
		SubjectID: 3,
		Timestamp: time.Unix(1700000060, 0),
	}))

	assert.Len(t, p.store.Get(3), 1)
	assert.Len(t, p.readings.inserted, 2)
}

func TestIngestAutoRegistersUnknownSubject(t *testing.T) {
	p := newPipeline(t)

	hr := 72
	require.NoError(t, p.svc.Ingest(context.Background(), &models.VitalsReading{
		SubjectID: 99,
		Timestamp: time.Now(),
		HeartRate: &hr,
	}))

	assert.Equal(t, []int{99}, p.subjects.ensured)
}

func TestIngestKnownSubjectNotReRegistered(t *testing.T) {
	p := newPipeline(t)
	p.subjects.known[3] = &models.Subject{SubjectID: 3, DisplayName: "Bed 12"}

	hr := 72
	require.NoError(t, p.svc.Ingest(context.Background(), &models.VitalsReading{
		SubjectID: 3,
		Timestamp: time.Now(),
		HeartRate: &hr,
	}))

	assert.Empty(t, p.subjects.ensured)
}

func TestIngestInsertFailureAborts(t *testing.T) {
	p := newPipeline(t)
	p.readings.insertErr = errors.New("db down")

	hr := 45
	err := p.svc.Ingest(context.Background(), &models.VitalsReading{
		SubjectID: 3,
		Timestamp: time.Now(),
		HeartRate: &hr,
	})

	require.Error(t, err)
	assert.Empty(t, p.alerts.created)
	assert.Nil(t, p.store.Get(3))
	assert.Equal(t, 0, p.mailer.sent)
}

func TestIngestRejectsMissingSubjectID(t *testing.T) {
	p := newPipeline(t)

	err := p.svc.Ingest(context.Background(), &models.VitalsReading{Timestamp: time.Now()})
	require.Error(t, err)
}

func TestProcessMessageGatewayPayload(t *testing.T) {
	p := newPipeline(t)

	payload := []byte(`{"sid": 3, "epoch": 1700000000, "src": "camera", "hr": 45, "spo2": 0, "abp": "85/60"}`)
	require.NoError(t, p.svc.ProcessMessage(context.Background(), payload))

	require.Len(t, p.readings.inserted, 1)
	stored := p.readings.inserted[0]
	assert.Equal(t, 3, stored.SubjectID)
	assert.Equal(t, time.Unix(1700000000, 0).Unix(), stored.Timestamp.Unix())
	assert.Equal(t, "camera", stored.Source)
	require.NotNil(t, stored.HeartRate)
	assert.Equal(t, 45, *stored.HeartRate)
	// A zero vital means the extraction could not read it.
	assert.Nil(t, stored.SpO2)
	require.NotNil(t, stored.ArterialBP)
	assert.Equal(t, "85/60", *stored.ArterialBP)

	// hr=45 is low/critical, abp systolic 85 is low/warning.
	require.Len(t, p.alerts.created, 2)
	assert.Equal(t, vitals.KindHeartRate, p.alerts.created[0].VitalKind)
	assert.Equal(t, vitals.KindArterialSystolic, p.alerts.created[1].VitalKind)
}

func TestProcessMessageRejectsInvalidPayloads(t *testing.T) {
	p := newPipeline(t)

	require.Error(t, p.svc.ProcessMessage(context.Background(), []byte("not json")))
	require.Error(t, p.svc.ProcessMessage(context.Background(), []byte(`{"hr": 45}`)))
	assert.Empty(t, p.readings.inserted)
}
