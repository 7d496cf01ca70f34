package vitals

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// VitalKind names the seven monitored measurements. Blood-pressure
// compound readings are decomposed: only the arterial systolic and the
// pulmonary diastolic components are evaluated; the complementary
// components (arterial diastolic, pulmonary systolic) are not checked,
// matching the upstream extraction pipeline.
const (
	KindHeartRate          = "heart_rate"
	KindPulse              = "pulse"
	KindSpO2               = "spo2"
	KindArterialSystolic   = "arterial_systolic"
	KindPulmonaryDiastolic = "pulmonary_diastolic"
	KindEtCO2              = "etco2"
	KindAirwayRespRate     = "airway_resp_rate"
)

// EvaluationOrder is the stable order kinds are checked in. Two runs over
// identical input produce identical alert ordering.
var EvaluationOrder = []string{
	KindHeartRate,
	KindPulse,
	KindSpO2,
	KindArterialSystolic,
	KindPulmonaryDiastolic,
	KindEtCO2,
	KindAirwayRespRate,
}

// KindLabel returns the human-readable name used in notifications and
// reports.
func KindLabel(kind string) string {
	switch kind {
	case KindHeartRate:
		return "Heart Rate"
	case KindPulse:
		return "Pulse"
	case KindSpO2:
		return "SpO2"
	case KindArterialSystolic:
		return "Arterial BP (systolic)"
	case KindPulmonaryDiastolic:
		return "Pulmonary AP (diastolic)"
	case KindEtCO2:
		return "EtCO2"
	case KindAirwayRespRate:
		return "Airway Respiratory Rate"
	}
	return kind
}

// RangeSpec holds the inclusive normal band and the wider critical band
// for one vital kind. Invariant: CriticalLow <= NormalLow <= NormalHigh
// <= CriticalHigh.
type RangeSpec struct {
	NormalLow    int
	NormalHigh   int
	CriticalLow  int
	CriticalHigh int
	// HighSuppressed disables the high-side comparison entirely. Used
	// for SpO2, where 100% is the physiological ceiling and a "too
	// high" alert is meaningless.
	HighSuppressed bool
}

// RangeTable maps vital kinds to their bounds. Lookup only; built once
// at startup.
type RangeTable map[string]RangeSpec

// DefaultRanges returns the reference bounds table.
func DefaultRanges() RangeTable {
	return RangeTable{
		KindHeartRate:          {NormalLow: 60, NormalHigh: 100, CriticalLow: 50, CriticalHigh: 120},
		KindPulse:              {NormalLow: 60, NormalHigh: 100, CriticalLow: 50, CriticalHigh: 120},
		KindSpO2:               {NormalLow: 90, NormalHigh: 100, CriticalLow: 85, CriticalHigh: 100, HighSuppressed: true},
		KindArterialSystolic:   {NormalLow: 90, NormalHigh: 120, CriticalLow: 70, CriticalHigh: 180},
		KindPulmonaryDiastolic: {NormalLow: 4, NormalHigh: 12, CriticalLow: 2, CriticalHigh: 20},
		KindEtCO2:              {NormalLow: 35, NormalHigh: 45, CriticalLow: 25, CriticalHigh: 55},
		KindAirwayRespRate:     {NormalLow: 12, NormalHigh: 20, CriticalLow: 8, CriticalHigh: 25},
	}
}

// LoadRanges builds the deployment range table: the defaults overlaid
// with any VITALS_RANGE_<KIND>="normalLow,normalHigh,criticalLow,criticalHigh"
// environment overrides. A malformed or inconsistent override is a
// startup error, not a silent fallback.
func LoadRanges() (RangeTable, error) {
	table := DefaultRanges()

	for _, kind := range EvaluationOrder {
		key := "VITALS_RANGE_" + strings.ToUpper(kind)
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}

		spec, err := parseRangeSpec(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		spec.HighSuppressed = table[kind].HighSuppressed
		table[kind] = spec
	}

	return table, nil
}

func parseRangeSpec(raw string) (RangeSpec, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return RangeSpec{}, fmt.Errorf("expected 4 comma-separated bounds, got %d", len(parts))
	}

	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return RangeSpec{}, fmt.Errorf("bound %q is not an integer", p)
		}
		vals[i] = v
	}

	spec := RangeSpec{
		NormalLow:    vals[0],
		NormalHigh:   vals[1],
		CriticalLow:  vals[2],
		CriticalHigh: vals[3],
	}

	if spec.CriticalLow > spec.NormalLow || spec.NormalLow > spec.NormalHigh || spec.NormalHigh > spec.CriticalHigh {
		return RangeSpec{}, fmt.Errorf("bounds must satisfy criticalLow <= normalLow <= normalHigh <= criticalHigh")
	}

	return spec, nil
}
