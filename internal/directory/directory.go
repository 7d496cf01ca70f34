package directory

import (
	"context"
	"fmt"

	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"
)

// SubjectLookup is the slice of the subject repository the directory
// needs.
type SubjectLookup interface {
	GetByID(ctx context.Context, subjectID int) (*models.Subject, error)
}

// RepoDirectory resolves subject display names and notification
// overrides from the subjects table. It is the default directory and the
// fallback behind the LDAP one.
type RepoDirectory struct {
	subjects SubjectLookup
	log      *logger.Logger
}

func NewRepoDirectory(subjects SubjectLookup, log *logger.Logger) *RepoDirectory {
	return &RepoDirectory{
		subjects: subjects,
		log:      log,
	}
}

func (d *RepoDirectory) LookupName(ctx context.Context, subjectID int) (string, error) {
	subject, err := d.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return "", fmt.Errorf("failed to look up subject %d: %w", subjectID, err)
	}
	if subject == nil {
		return "", fmt.Errorf("subject %d not found", subjectID)
	}
	return subject.DisplayName, nil
}

func (d *RepoDirectory) LookupNotifyEmail(ctx context.Context, subjectID int) (string, error) {
	subject, err := d.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return "", fmt.Errorf("failed to look up subject %d: %w", subjectID, err)
	}
	if subject == nil {
		return "", fmt.Errorf("subject %d not found", subjectID)
	}
	return subject.NotifyEmail, nil
}
