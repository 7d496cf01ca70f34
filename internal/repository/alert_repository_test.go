package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"WardMonitorAPI/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAlertRepository(db)

	alert := &models.Alert{
		ID:        "3-heart_rate-1700000000",
		SubjectID: 3,
		VitalKind: "heart_rate",
		Value:     45,
		Direction: models.DirectionLow,
		Severity:  models.SeverityCritical,
		Timestamp: time.Unix(1700000000, 0),
		Source:    "camera",
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO alerts")).
		WithArgs(alert.ID, alert.SubjectID, alert.VitalKind, alert.Value,
			alert.Direction, alert.Severity, alert.Timestamp, alert.Source).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Create(context.Background(), alert)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepositoryCreateDuplicateIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAlertRepository(db)

	alert := &models.Alert{
		ID:        "3-heart_rate-1700000000",
		SubjectID: 3,
		VitalKind: "heart_rate",
		Value:     45,
		Direction: models.DirectionLow,
		Severity:  models.SeverityCritical,
		Timestamp: time.Unix(1700000000, 0),
	}

	// ON CONFLICT DO NOTHING reports zero rows affected; that is success.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO alerts")).
		WithArgs(alert.ID, alert.SubjectID, alert.VitalKind, alert.Value,
			alert.Direction, alert.Severity, alert.Timestamp, alert.Source).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Create(context.Background(), alert)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepositoryGetBySubject(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAlertRepository(db)
	ts := time.Unix(1700000000, 0)

	rows := sqlmock.NewRows([]string{
		"id", "alert_id", "subject_id", "vital_kind", "value",
		"direction", "severity", "timestamp", "source", "acknowledged",
	}).
		AddRow(2, "3-spo2-1700000000", 3, "spo2", 85, "low", "critical", ts, "camera", false).
		AddRow(1, "3-heart_rate-1700000000", 3, "heart_rate", 45, "low", "critical", ts, "camera", true)

	mock.ExpectQuery(regexp.QuoteMeta("FROM alerts")).
		WithArgs(3, 50).
		WillReturnRows(rows)

	alerts, err := repo.GetBySubject(context.Background(), 3, 50)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	assert.Equal(t, "3-spo2-1700000000", alerts[0].ID)
	assert.Equal(t, 85, alerts[0].Value)
	assert.False(t, alerts[0].Acknowledged)
	assert.True(t, alerts[1].Acknowledged)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepositoryAcknowledge(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAlertRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE alerts SET acknowledged = true")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Acknowledge(context.Background(), 5))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepositoryAcknowledgeMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAlertRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE alerts SET acknowledged = true")).
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Acknowledge(context.Background(), 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAlertRepositoryDeleteOld(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAlertRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM alerts WHERE acknowledged = true")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 12))

	count, err := repo.DeleteOld(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
}
