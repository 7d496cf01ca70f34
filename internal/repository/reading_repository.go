package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"WardMonitorAPI/internal/models"
)

// IReadingRepository defines the operations on stored vitals readings.
type IReadingRepository interface {
	Insert(ctx context.Context, reading *models.VitalsReading) error
	Query(ctx context.Context, req *models.ReadingQueryRequest) ([]models.VitalsReading, int, error)
	GetLatest(ctx context.Context, subjectID int) (*models.VitalsReading, error)
}

type ReadingRepository struct {
	db *sql.DB
}

func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

const readingColumns = `reading_id, subject_id, timestamp, source,
	       heart_rate, pulse, spo2, etco2, airway_resp_rate,
	       arterial_bp, pulmonary_ap, received_at`

// Insert stores one reading and fills in the generated reading_id.
func (r *ReadingRepository) Insert(ctx context.Context, reading *models.VitalsReading) error {
	query := `
		INSERT INTO readings (
			subject_id, timestamp, source,
			heart_rate, pulse, spo2, etco2, airway_resp_rate,
			arterial_bp, pulmonary_ap, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING reading_id
	`

	err := r.db.QueryRowContext(
		ctx, query,
		reading.SubjectID,
		reading.Timestamp,
		reading.Source,
		reading.HeartRate,
		reading.Pulse,
		reading.SpO2,
		reading.EtCO2,
		reading.AirwayRespRate,
		reading.ArterialBP,
		reading.PulmonaryAP,
		reading.ReceivedAt,
	).Scan(&reading.ReadingID)

	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	return nil
}

// Query returns a page of readings plus the unpaged total count.
func (r *ReadingRepository) Query(ctx context.Context, req *models.ReadingQueryRequest) ([]models.VitalsReading, int, error) {
	var conditions []string
	var args []interface{}

	if req.SubjectID != 0 {
		args = append(args, req.SubjectID)
		conditions = append(conditions, "subject_id = $"+strconv.Itoa(len(args)))
	}
	if req.StartTime != nil {
		args = append(args, *req.StartTime)
		conditions = append(conditions, "timestamp >= $"+strconv.Itoa(len(args)))
	}
	if req.EndTime != nil {
		args = append(args, *req.EndTime)
		conditions = append(conditions, "timestamp <= $"+strconv.Itoa(len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM readings" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count readings: %w", err)
	}

	args = append(args, req.Limit)
	limitPos := len(args)
	args = append(args, req.Offset)
	offsetPos := len(args)

	query := fmt.Sprintf(
		"SELECT "+readingColumns+" FROM readings%s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d",
		where, limitPos, offsetPos,
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []models.VitalsReading
	for rows.Next() {
		var v models.VitalsReading
		err := rows.Scan(
			&v.ReadingID, &v.SubjectID, &v.Timestamp, &v.Source,
			&v.HeartRate, &v.Pulse, &v.SpO2, &v.EtCO2, &v.AirwayRespRate,
			&v.ArterialBP, &v.PulmonaryAP, &v.ReceivedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		readings = append(readings, v)
	}

	return readings, total, nil
}

// GetLatest returns the most recent reading for a subject, or nil when
// none exists yet.
func (r *ReadingRepository) GetLatest(ctx context.Context, subjectID int) (*models.VitalsReading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM readings
		WHERE subject_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`

	v := &models.VitalsReading{}
	err := r.db.QueryRowContext(ctx, query, subjectID).Scan(
		&v.ReadingID, &v.SubjectID, &v.Timestamp, &v.Source,
		&v.HeartRate, &v.Pulse, &v.SpO2, &v.EtCO2, &v.AirwayRespRate,
		&v.ArterialBP, &v.PulmonaryAP, &v.ReceivedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}

	return v, nil
}
