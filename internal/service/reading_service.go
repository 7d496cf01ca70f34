package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"WardMonitorAPI/internal/alerting"
	"WardMonitorAPI/internal/cache"
	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"
	"WardMonitorAPI/internal/repository"
	"WardMonitorAPI/internal/vitals"
)

// ReadingService runs the ingest pipeline: parse -> persist -> cache ->
// evaluate -> update live alert set -> dispatch notifications. One
// invocation per reading, in arrival order per subject.
type ReadingService struct {
	readingRepo repository.IReadingRepository
	subjectRepo repository.ISubjectRepository
	alertRepo   repository.IAlertRepository
	cache       *cache.VitalsCache
	evaluator   *vitals.Evaluator
	store       *alerting.SubjectAlertStore
	dispatcher  *alerting.Dispatcher
	log         *logger.Logger
}

func NewReadingService(
	readingRepo repository.IReadingRepository,
	subjectRepo repository.ISubjectRepository,
	alertRepo repository.IAlertRepository,
	vitalsCache *cache.VitalsCache,
	evaluator *vitals.Evaluator,
	store *alerting.SubjectAlertStore,
	dispatcher *alerting.Dispatcher,
	log *logger.Logger,
) *ReadingService {
	return &ReadingService{
		readingRepo: readingRepo,
		subjectRepo: subjectRepo,
		alertRepo:   alertRepo,
		cache:       vitalsCache,
		evaluator:   evaluator,
		store:       store,
		dispatcher:  dispatcher,
		log:         log,
	}
}

// ProcessMessage ingests one gateway JSON payload from MQTT.
func (s *ReadingService) ProcessMessage(ctx context.Context, payload []byte) error {
	s.log.Debug("Processing vitals message: %d bytes", len(payload))

	var rawData map[string]interface{}
	if err := json.Unmarshal(payload, &rawData); err != nil {
		s.log.Error("Failed to unmarshal vitals payload: %v", err)
		return fmt.Errorf("invalid JSON: %w", err)
	}

	reading, err := parseGatewayReading(rawData)
	if err != nil {
		s.log.Error("Failed to parse vitals payload: %v", err)
		return err
	}

	return s.Ingest(ctx, reading)
}

// parseGatewayReading decodes the compact gateway keys. Zero values are
// treated as missing: none of these vitals is ever physiologically zero,
// and the camera extraction emits zero when it could not read a field.
func parseGatewayReading(data map[string]interface{}) (*models.VitalsReading, error) {
	sid, ok := data["sid"].(float64)
	if !ok || sid <= 0 {
		return nil, fmt.Errorf("missing subject id")
	}

	reading := &models.VitalsReading{
		SubjectID: int(sid),
		Timestamp: time.Now(),
	}

	if epoch, ok := data["epoch"].(float64); ok && epoch > 0 {
		reading.Timestamp = time.Unix(int64(epoch), 0)
	}

	if src, ok := data["src"].(string); ok {
		reading.Source = src
	}

	reading.HeartRate = intField(data, "hr")
	reading.Pulse = intField(data, "pulse")
	reading.SpO2 = intField(data, "spo2")
	reading.EtCO2 = intField(data, "etco2")
	reading.AirwayRespRate = intField(data, "awrr")

	if val, ok := data["abp"].(string); ok && val != "" {
		reading.ArterialBP = &val
	}
	if val, ok := data["pap"].(string); ok && val != "" {
		reading.PulmonaryAP = &val
	}

	return reading, nil
}

func intField(data map[string]interface{}, key string) *int {
	val, ok := data[key].(float64)
	if !ok || val == 0 {
		return nil
	}
	v := int(val)
	return &v
}

// Ingest runs the full pipeline for one reading. Persistence failure
// aborts (the reading is the source of truth); everything downstream is
// fire-and-forget and only degrades its own channel.
func (s *ReadingService) Ingest(ctx context.Context, reading *models.VitalsReading) error {
	if reading.SubjectID <= 0 {
		return fmt.Errorf("reading has no subject id")
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}
	reading.ReceivedAt = time.Now()

	// Auto-register unknown subjects so a freshly wheeled-in monitor
	// streams without manual setup.
	subject, err := s.subjectRepo.GetByID(ctx, reading.SubjectID)
	if err != nil {
		s.log.Warn("Subject lookup failed for %d: %v", reading.SubjectID, err)
	} else if subject == nil {
		s.log.Info("Unknown subject %d, auto-registering", reading.SubjectID)
		if err := s.subjectRepo.EnsureExists(ctx, reading.SubjectID); err != nil {
			s.log.Error("Failed to auto-register subject %d: %v", reading.SubjectID, err)
		}
	}

	if err := s.readingRepo.Insert(ctx, reading); err != nil {
		s.log.Error("Failed to insert reading: %v", err)
		return err
	}

	if s.cache != nil {
		if err := s.cache.SetLatestReading(ctx, reading); err != nil {
			s.log.Warn("Failed to cache latest reading for subject %d: %v", reading.SubjectID, err)
		}
	}

	alerts := s.evaluator.Evaluate(reading)

	s.log.Info("Reading stored: subject=%d source=%s alerts=%d",
		reading.SubjectID, reading.Source, len(alerts))

	// An entirely empty reading (blank camera frame) must not wipe the
	// live alert set; only an evaluation with actual data replaces it.
	if !reading.IsEmpty() {
		s.store.Update(reading.SubjectID, alerts)
		if s.cache != nil {
			if err := s.cache.SetActiveAlerts(ctx, reading.SubjectID, alerts); err != nil {
				s.log.Warn("Failed to mirror alert set for subject %d: %v", reading.SubjectID, err)
			}
		}
	}

	for _, alert := range alerts {
		if err := s.alertRepo.Create(ctx, &alert); err != nil {
			s.log.Error("Failed to log alert %s: %v", alert.ID, err)
		}
	}

	s.dispatcher.Dispatch(ctx, reading, alerts)

	return nil
}

func (s *ReadingService) GetReadings(ctx context.Context, req *models.ReadingQueryRequest) (*models.ReadingQueryResponse, error) {
	data, total, err := s.readingRepo.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	return &models.ReadingQueryResponse{
		Data:       data,
		TotalCount: total,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}, nil
}

// GetLatest serves the subject's newest reading, preferring the Redis
// snapshot and falling back to Postgres on a miss.
func (s *ReadingService) GetLatest(ctx context.Context, subjectID int) (*models.VitalsReading, error) {
	if s.cache != nil {
		reading, err := s.cache.GetLatestReading(ctx, subjectID)
		if err != nil {
			s.log.Warn("Snapshot read failed for subject %d: %v", subjectID, err)
		} else if reading != nil {
			return reading, nil
		}
	}

	return s.readingRepo.GetLatest(ctx, subjectID)
}
