package service

import (
	"context"
	"fmt"

	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"
	"WardMonitorAPI/internal/repository"
)

type SubjectService struct {
	repo repository.ISubjectRepository
	log  *logger.Logger
}

func NewSubjectService(repo repository.ISubjectRepository, log *logger.Logger) *SubjectService {
	return &SubjectService{
		repo: repo,
		log:  log,
	}
}

func (s *SubjectService) Register(ctx context.Context, req *models.CreateSubjectRequest) (*models.Subject, error) {
	if req.MRN == "" {
		return nil, fmt.Errorf("mrn is required")
	}
	if req.DisplayName == "" {
		return nil, fmt.Errorf("display_name is required")
	}

	existing, err := s.repo.GetByMRN(ctx, req.MRN)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("subject with MRN %s already exists", req.MRN)
	}

	subject := &models.Subject{
		MRN:         req.MRN,
		DisplayName: req.DisplayName,
		Room:        req.Room,
		Bed:         req.Bed,
		NotifyEmail: req.NotifyEmail,
	}

	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, err
	}

	s.log.Info("Subject registered: id=%d mrn=%s room=%s", subject.SubjectID, subject.MRN, subject.Room)
	return subject, nil
}

func (s *SubjectService) Get(ctx context.Context, subjectID int) (*models.Subject, error) {
	subject, err := s.repo.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, fmt.Errorf("subject %d not found", subjectID)
	}
	return subject, nil
}

func (s *SubjectService) List(ctx context.Context) ([]models.Subject, error) {
	return s.repo.GetAll(ctx)
}

func (s *SubjectService) Update(ctx context.Context, subjectID int, req *models.UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.repo.Update(ctx, subjectID, req); err != nil {
		return nil, err
	}
	return s.Get(ctx, subjectID)
}

// Discharge marks the subject as no longer monitored.
func (s *SubjectService) Discharge(ctx context.Context, subjectID int) error {
	if err := s.repo.Delete(ctx, subjectID); err != nil {
		return err
	}
	s.log.Info("Subject %d discharged", subjectID)
	return nil
}
