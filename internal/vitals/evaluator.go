package vitals

import (
	"fmt"
	"strconv"
	"strings"

	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"
)

// Evaluator turns one reading into zero or more alerts by comparing each
// present field against the range table. It holds no per-reading state
// and is safe for concurrent use.
type Evaluator struct {
	ranges RangeTable
	log    *logger.Logger
}

func NewEvaluator(ranges RangeTable, log *logger.Logger) *Evaluator {
	return &Evaluator{
		ranges: ranges,
		log:    log,
	}
}

// Evaluate checks every present vital field in the stable EvaluationOrder.
// Absent fields, unparseable blood-pressure strings and kinds without a
// range entry are skipped; they never fail the rest of the evaluation.
func (e *Evaluator) Evaluate(reading *models.VitalsReading) []models.Alert {
	var alerts []models.Alert

	for _, kind := range EvaluationOrder {
		value, ok := e.extract(reading, kind)
		if !ok {
			continue
		}

		spec, ok := e.ranges[kind]
		if !ok {
			e.log.Warn("No range entry for vital kind %s, skipping", kind)
			continue
		}

		alert, ok := e.check(reading, kind, value, spec)
		if ok {
			alerts = append(alerts, alert)
		}
	}

	return alerts
}

// extract pulls the integer value for one kind out of the reading.
// Returns false when the field is absent or, for the blood-pressure
// kinds, when the compound string does not yield a number at the
// required index. Parse failure is "no data", not an error.
func (e *Evaluator) extract(reading *models.VitalsReading, kind string) (int, bool) {
	switch kind {
	case KindHeartRate:
		return deref(reading.HeartRate)
	case KindPulse:
		return deref(reading.Pulse)
	case KindSpO2:
		return deref(reading.SpO2)
	case KindEtCO2:
		return deref(reading.EtCO2)
	case KindAirwayRespRate:
		return deref(reading.AirwayRespRate)
	case KindArterialSystolic:
		if reading.ArterialBP == nil {
			return 0, false
		}
		return parseCompound(*reading.ArterialBP, 0)
	case KindPulmonaryDiastolic:
		if reading.PulmonaryAP == nil {
			return 0, false
		}
		return parseCompound(*reading.PulmonaryAP, 1)
	}
	return 0, false
}

func deref(v *int) (int, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// parseCompound splits a "systolic/diastolic[/mean]" string and returns
// the integer at the given index.
func parseCompound(s string, index int) (int, bool) {
	parts := strings.Split(s, "/")
	if index >= len(parts) {
		return 0, false
	}

	value, err := strconv.Atoi(strings.TrimSpace(parts[index]))
	if err != nil {
		return 0, false
	}

	return value, true
}

// check applies the low/high/severity rules for one value. Bounds are
// inclusive on the normal side: value == NormalLow is not an alert.
func (e *Evaluator) check(reading *models.VitalsReading, kind string, value int, spec RangeSpec) (models.Alert, bool) {
	var direction string

	switch {
	case value < spec.NormalLow:
		direction = models.DirectionLow
	case value > spec.NormalHigh && !spec.HighSuppressed:
		direction = models.DirectionHigh
	default:
		return models.Alert{}, false
	}

	// The normal band is inclusive (== NormalLow is fine) but the
	// critical boundary itself already counts as critical: SpO2 of 85
	// or a respiratory rate of 25 must page as critical, not warning.
	severity := models.SeverityWarning
	if value <= spec.CriticalLow || (value >= spec.CriticalHigh && !spec.HighSuppressed) {
		severity = models.SeverityCritical
	}

	return models.Alert{
		ID:        AlertID(reading.SubjectID, kind, reading.Timestamp.Unix()),
		SubjectID: reading.SubjectID,
		VitalKind: kind,
		Value:     value,
		Direction: direction,
		Severity:  severity,
		Timestamp: reading.Timestamp,
		Source:    reading.Source,
	}, true
}

// AlertID builds the deterministic identity for a (subject, kind, reading)
// triple, so re-evaluating the same reading yields the same alert ID.
func AlertID(subjectID int, kind string, unixTS int64) string {
	return fmt.Sprintf("%d-%s-%d", subjectID, kind, unixTS)
}
