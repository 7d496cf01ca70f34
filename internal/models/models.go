// internal/models/models.go

package models

import (
	"time"
)

// Subject is a monitored patient. The MRN is the hospital-side identifier;
// SubjectID is ours.
type Subject struct {
	SubjectID   int        `json:"subject_id" db:"subject_id"`
	MRN         string     `json:"mrn" db:"mrn"`
	DisplayName string     `json:"display_name" db:"display_name"`
	Room        string     `json:"room" db:"room"`
	Bed         string     `json:"bed" db:"bed"`
	// Overrides the global care-team address when set.
	NotifyEmail string     `json:"notify_email,omitempty" db:"notify_email"`
	AdmittedAt  time.Time  `json:"admitted_at" db:"admitted_at"`
	DischargedAt *time.Time `json:"discharged_at,omitempty" db:"discharged_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// VitalsReading is one sample extracted from one bedside monitor at one
// instant. Every field is optional; a reading with no fields set is valid
// and produces no alerts. Zero is never a physiologically valid value for
// any of these vitals, so zero-valued fields are treated as missing when
// decoding untyped input.
type VitalsReading struct {
	ReadingID int       `json:"reading_id,omitempty" db:"reading_id"`
	SubjectID int       `json:"subject_id" db:"subject_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	// Provenance tag: "camera", "video", "manual" or "test". Informational.
	Source string `json:"source,omitempty" db:"source"`

	HeartRate      *int `json:"heart_rate,omitempty" db:"heart_rate"`
	Pulse          *int `json:"pulse,omitempty" db:"pulse"`
	SpO2           *int `json:"spo2,omitempty" db:"spo2"`
	EtCO2          *int `json:"etco2,omitempty" db:"etco2"`
	AirwayRespRate *int `json:"airway_resp_rate,omitempty" db:"airway_resp_rate"`

	// Compound "systolic/diastolic[/mean]" strings, stored verbatim.
	ArterialBP  *string `json:"arterial_bp,omitempty" db:"arterial_bp"`
	PulmonaryAP *string `json:"pulmonary_ap,omitempty" db:"pulmonary_ap"`

	ReceivedAt time.Time `json:"received_at,omitempty" db:"received_at"`
}

// IsEmpty reports whether no vital field is present at all.
func (r *VitalsReading) IsEmpty() bool {
	return r.HeartRate == nil && r.Pulse == nil && r.SpO2 == nil &&
		r.EtCO2 == nil && r.AirwayRespRate == nil &&
		r.ArterialBP == nil && r.PulmonaryAP == nil
}

// Alert severity and direction values.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"

	DirectionLow  = "low"
	DirectionHigh = "high"
)

// Alert is one out-of-range finding for one vital kind of one reading.
// The ID is deterministic for a given (subject, kind, timestamp) so that
// re-evaluating the same reading cannot mint a second identity.
type Alert struct {
	ID        string    `json:"id" db:"alert_id"`
	SubjectID int       `json:"subject_id" db:"subject_id"`
	VitalKind string    `json:"vital_kind" db:"vital_kind"`
	Value     int       `json:"value" db:"value"`
	Direction string    `json:"direction" db:"direction"`
	Severity  string    `json:"severity" db:"severity"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Source    string    `json:"source,omitempty" db:"source"`

	// Set only on the durable history rows, not on live alerts.
	RowID        int  `json:"row_id,omitempty" db:"id"`
	Acknowledged bool `json:"acknowledged,omitempty" db:"acknowledged"`
}

// User is a dashboard account.
type User struct {
	UserID       int       `json:"user_id" db:"user_id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
}

type CreateSubjectRequest struct {
	MRN         string `json:"mrn"`
	DisplayName string `json:"display_name"`
	Room        string `json:"room"`
	Bed         string `json:"bed"`
	NotifyEmail string `json:"notify_email"`
}

type UpdateSubjectRequest struct {
	DisplayName *string `json:"display_name"`
	Room        *string `json:"room"`
	Bed         *string `json:"bed"`
	NotifyEmail *string `json:"notify_email"`
}

type ReadingQueryRequest struct {
	SubjectID int
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

type ReadingQueryResponse struct {
	Data       []VitalsReading `json:"data"`
	TotalCount int             `json:"total_count"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  struct {
		Database bool `json:"database"`
		Redis    bool `json:"redis"`
		MQTT     bool `json:"mqtt"`
	} `json:"services"`
}

// WSMessage is the envelope pushed to dashboard clients.
type WSMessage struct {
	Type      string      `json:"type"`
	Topic     string      `json:"topic"`
	SubjectID int         `json:"subject_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

const (
	WSTypeAlert   = "ALERT"
	WSTypeReading = "READING"
	WSTypeCleared = "ALERTS_CLEARED"
)
