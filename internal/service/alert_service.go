package service

import (
	"context"
	"fmt"
	"time"

	"WardMonitorAPI/internal/alerting"
	"WardMonitorAPI/internal/cache"
	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"
	"WardMonitorAPI/internal/repository"
)

// IAlertService exposes the live alert state and the durable history to
// the dashboard.
type IAlertService interface {
	GetActive(ctx context.Context) map[int][]models.Alert
	GetActiveBySubject(ctx context.Context, subjectID int) []models.Alert
	ClearActive(ctx context.Context, subjectID int) error
	GetHistory(ctx context.Context, limit, offset int) ([]models.Alert, error)
	GetSubjectHistory(ctx context.Context, subjectID int, limit int) ([]models.Alert, error)
	Acknowledge(ctx context.Context, rowID int) error
}

type AlertService struct {
	store       *alerting.SubjectAlertStore
	repo        repository.IAlertRepository
	cache       *cache.VitalsCache
	broadcaster alerting.Broadcaster
	log         *logger.Logger
}

func NewAlertService(
	store *alerting.SubjectAlertStore,
	repo repository.IAlertRepository,
	vitalsCache *cache.VitalsCache,
	broadcaster alerting.Broadcaster,
	log *logger.Logger,
) *AlertService {
	return &AlertService{
		store:       store,
		repo:        repo,
		cache:       vitalsCache,
		broadcaster: broadcaster,
		log:         log,
	}
}

// GetActive returns the current alert set of every subject.
func (s *AlertService) GetActive(ctx context.Context) map[int][]models.Alert {
	return s.store.All()
}

// GetActiveBySubject returns the subject's current alert set.
func (s *AlertService) GetActiveBySubject(ctx context.Context, subjectID int) []models.Alert {
	return s.store.Get(subjectID)
}

// ClearActive dismisses the subject's live alerts and tells connected
// viewers to drop their badges. The history rows are untouched.
func (s *AlertService) ClearActive(ctx context.Context, subjectID int) error {
	s.store.Clear(subjectID)

	if s.cache != nil {
		if err := s.cache.SetActiveAlerts(ctx, subjectID, nil); err != nil {
			s.log.Warn("Failed to clear mirrored alert set for subject %d: %v", subjectID, err)
		}
	}

	if s.broadcaster != nil {
		msg := models.WSMessage{
			Type:      models.WSTypeCleared,
			SubjectID: subjectID,
			Timestamp: time.Now(),
		}
		msg.Topic = alerting.SubjectTopic(subjectID)
		s.broadcaster.Publish(msg.Topic, msg)
		msg.Topic = alerting.TopicGlobal
		s.broadcaster.Publish(alerting.TopicGlobal, msg)
	}

	s.log.Info("Active alerts cleared for subject %d", subjectID)
	return nil
}

func (s *AlertService) GetHistory(ctx context.Context, limit, offset int) ([]models.Alert, error) {
	alerts, err := s.repo.GetHistory(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load alert history: %w", err)
	}
	return alerts, nil
}

func (s *AlertService) GetSubjectHistory(ctx context.Context, subjectID int, limit int) ([]models.Alert, error) {
	alerts, err := s.repo.GetBySubject(ctx, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts for subject %d: %w", subjectID, err)
	}
	return alerts, nil
}

func (s *AlertService) Acknowledge(ctx context.Context, rowID int) error {
	if err := s.repo.Acknowledge(ctx, rowID); err != nil {
		return fmt.Errorf("failed to acknowledge alert %d: %w", rowID, err)
	}
	return nil
}

// CleanUpTask trims acknowledged history rows older than 30 days. Run
// periodically from main.
func (s *AlertService) CleanUpTask(ctx context.Context) {
	count, err := s.repo.DeleteOld(ctx, 30*24*time.Hour)
	if err != nil {
		s.log.Warn("Alert history cleanup failed: %v", err)
		return
	}
	if count > 0 {
		s.log.Info("Removed %d old acknowledged alerts from history", count)
	}
}
