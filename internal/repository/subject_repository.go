package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"WardMonitorAPI/internal/models"
)

// ISubjectRepository defines the operations on monitored subjects.
type ISubjectRepository interface {
	Create(ctx context.Context, subject *models.Subject) error
	GetByID(ctx context.Context, subjectID int) (*models.Subject, error)
	GetByMRN(ctx context.Context, mrn string) (*models.Subject, error)
	GetAll(ctx context.Context) ([]models.Subject, error)
	Update(ctx context.Context, subjectID int, updates *models.UpdateSubjectRequest) error
	Delete(ctx context.Context, subjectID int) error
	EnsureExists(ctx context.Context, subjectID int) error
}

type SubjectRepository struct {
	db *sql.DB
}

func NewSubjectRepository(db *sql.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = `subject_id, mrn, display_name, room, bed, notify_email,
	       admitted_at, discharged_at, created_at, updated_at`

// Create inserts a subject and fills in the generated ID and timestamps.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	query := `
		INSERT INTO subjects (mrn, display_name, room, bed, notify_email, admitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING subject_id
	`

	now := time.Now()
	if subject.AdmittedAt.IsZero() {
		subject.AdmittedAt = now
	}
	subject.CreatedAt = now
	subject.UpdatedAt = now

	err := r.db.QueryRowContext(
		ctx, query,
		subject.MRN,
		subject.DisplayName,
		subject.Room,
		subject.Bed,
		subject.NotifyEmail,
		subject.AdmittedAt,
		subject.CreatedAt,
		subject.UpdatedAt,
	).Scan(&subject.SubjectID)

	if err != nil {
		return fmt.Errorf("failed to create subject: %w", err)
	}

	return nil
}

func (r *SubjectRepository) GetByID(ctx context.Context, subjectID int) (*models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE subject_id = $1`

	subject := &models.Subject{}
	err := r.db.QueryRowContext(ctx, query, subjectID).Scan(
		&subject.SubjectID,
		&subject.MRN,
		&subject.DisplayName,
		&subject.Room,
		&subject.Bed,
		&subject.NotifyEmail,
		&subject.AdmittedAt,
		&subject.DischargedAt,
		&subject.CreatedAt,
		&subject.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subject by id: %w", err)
	}

	return subject, nil
}

func (r *SubjectRepository) GetByMRN(ctx context.Context, mrn string) (*models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE mrn = $1`

	subject := &models.Subject{}
	err := r.db.QueryRowContext(ctx, query, mrn).Scan(
		&subject.SubjectID,
		&subject.MRN,
		&subject.DisplayName,
		&subject.Room,
		&subject.Bed,
		&subject.NotifyEmail,
		&subject.AdmittedAt,
		&subject.DischargedAt,
		&subject.CreatedAt,
		&subject.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subject by mrn: %w", err)
	}

	return subject, nil
}

// GetAll returns subjects that have not been discharged, newest first.
func (r *SubjectRepository) GetAll(ctx context.Context) ([]models.Subject, error) {
	query := `
		SELECT ` + subjectColumns + `
		FROM subjects
		WHERE discharged_at IS NULL
		ORDER BY admitted_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query subjects: %w", err)
	}
	defer rows.Close()

	var subjects []models.Subject
	for rows.Next() {
		var s models.Subject
		err := rows.Scan(
			&s.SubjectID, &s.MRN, &s.DisplayName, &s.Room, &s.Bed, &s.NotifyEmail,
			&s.AdmittedAt, &s.DischargedAt, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}

	return subjects, nil
}

// Update applies only the fields present in the request.
func (r *SubjectRepository) Update(ctx context.Context, subjectID int, updates *models.UpdateSubjectRequest) error {
	query := `
		UPDATE subjects SET
			display_name = COALESCE($1, display_name),
			room         = COALESCE($2, room),
			bed          = COALESCE($3, bed),
			notify_email = COALESCE($4, notify_email),
			updated_at   = $5
		WHERE subject_id = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		updates.DisplayName,
		updates.Room,
		updates.Bed,
		updates.NotifyEmail,
		time.Now(),
		subjectID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subject %d: %w", subjectID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("subject %d not found", subjectID)
	}

	return nil
}

// EnsureExists inserts a placeholder row for a subject id seen on the
// wire before anyone registered it. No-op when the row already exists.
// The insert bypasses the serial default, so the statement also advances
// the sequence past the explicit id or Create would later collide on it.
func (r *SubjectRepository) EnsureExists(ctx context.Context, subjectID int) error {
	query := `
		WITH ins AS (
			INSERT INTO subjects (subject_id, mrn, display_name, room, bed, notify_email, admitted_at, created_at, updated_at)
			VALUES ($1, '', $2, '', '', '', $3, $3, $3)
			ON CONFLICT (subject_id) DO NOTHING
		)
		SELECT setval(
			pg_get_serial_sequence('subjects', 'subject_id'),
			GREATEST((SELECT COALESCE(MAX(subject_id), 1) FROM subjects), $1)
		)
	`

	now := time.Now()
	placeholder := fmt.Sprintf("Subject %d", subjectID)

	_, err := r.db.ExecContext(ctx, query, subjectID, placeholder, now)
	if err != nil {
		return fmt.Errorf("failed to ensure subject %d exists: %w", subjectID, err)
	}

	return nil
}

// Delete marks the subject discharged. Readings and alert history are
// kept for the audit trail.
func (r *SubjectRepository) Delete(ctx context.Context, subjectID int) error {
	query := `UPDATE subjects SET discharged_at = $1, updated_at = $1 WHERE subject_id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), subjectID)
	if err != nil {
		return fmt.Errorf("failed to discharge subject %d: %w", subjectID, err)
	}
	return nil
}
