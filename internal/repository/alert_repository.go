package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"WardMonitorAPI/internal/models"
)

// IAlertRepository is the durable log of dispatched alerts. The live
// per-subject alert set lives in memory (alerting.SubjectAlertStore);
// this table is the audit trail the dashboard's history view reads.
type IAlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetHistory(ctx context.Context, limit, offset int) ([]models.Alert, error)
	GetBySubject(ctx context.Context, subjectID int, limit int) ([]models.Alert, error)
	Acknowledge(ctx context.Context, rowID int) error
	DeleteOld(ctx context.Context, olderThan time.Duration) (int64, error)
}

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create appends one alert to the history. The deterministic alert_id is
// unique per (subject, kind, reading timestamp); a conflict means the
// same reading was evaluated twice and the row is left untouched.
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (
			alert_id, subject_id, vital_kind, value,
			direction, severity, timestamp, source, acknowledged
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false)
		ON CONFLICT (alert_id) DO NOTHING
	`

	_, err := r.db.ExecContext(
		ctx, query,
		alert.ID,
		alert.SubjectID,
		alert.VitalKind,
		alert.Value,
		alert.Direction,
		alert.Severity,
		alert.Timestamp,
		alert.Source,
	)

	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

const alertColumns = `id, alert_id, subject_id, vital_kind, value,
	       direction, severity, timestamp, source, acknowledged`

// GetHistory returns a paginated list of all logged alerts, newest first.
func (r *AlertRepository) GetHistory(ctx context.Context, limit, offset int) ([]models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		ORDER BY timestamp DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert history: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// GetBySubject returns the subject's logged alerts, newest first.
func (r *AlertRepository) GetBySubject(ctx context.Context, subjectID int, limit int) ([]models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE subject_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query subject alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func scanAlerts(rows *sql.Rows) ([]models.Alert, error) {
	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		err := rows.Scan(
			&a.RowID, &a.ID, &a.SubjectID, &a.VitalKind, &a.Value,
			&a.Direction, &a.Severity, &a.Timestamp, &a.Source, &a.Acknowledged,
		)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// Acknowledge marks a history row as reviewed.
func (r *AlertRepository) Acknowledge(ctx context.Context, rowID int) error {
	query := `UPDATE alerts SET acknowledged = true WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, rowID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert %d: %w", rowID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("alert %d not found", rowID)
	}

	return nil
}

// DeleteOld trims acknowledged alerts older than the given age.
func (r *AlertRepository) DeleteOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM alerts WHERE acknowledged = true AND timestamp < $1`
	cutoff := time.Now().Add(-olderThan)

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
