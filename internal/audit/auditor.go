package audit

import (
	"math"

	"github.com/ises-energia/scrc-backend/pkg/config"
	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/geo"
	"github.com/ises-energia/scrc-backend/pkg/types"
)

// Flag names recorded on audited closures.
const (
	FlagGPSMismatch = "gps_mismatch"
	FlagDistanceOff = "distance_off"
	FlagGPSMissing  = "gps_missing"
	FlagTooFast     = "too_fast"
	FlagTooSlow     = "too_slow"
)

// Closing carries the technician-reported execution data for one closure.
type Closing struct {
	Latitude        *float64
	Longitude       *float64
	DurationMinutes *int
}

// Verdict is the outcome of auditing one closure. Flags are data, never
// errors: a flagged order still completes.
type Verdict struct {
	Flags     types.JSONMap
	Flagged   bool
	FlagNames []string
}

// ValidateClosure applies the plausibility heuristics to a completed order.
// It is a pure function of its inputs; thresholds come from the caller's
// config snapshot.
func ValidateClosure(order *models.Order, closing Closing, thresholds config.AuditConfig) Verdict {
	verdict := Verdict{Flags: types.JSONMap{}}

	checkLocation(order, closing, thresholds, &verdict)
	checkDuration(closing, thresholds, &verdict)

	return verdict
}

func checkLocation(order *models.Order, closing Closing, thresholds config.AuditConfig, verdict *Verdict) {
	hasReference := order != nil && order.ReferenceLocation != nil
	hasExecution := closing.Latitude != nil && closing.Longitude != nil

	if !hasReference || !hasExecution {
		// Soft flag: GPS can legitimately be unavailable in the field, so
		// this alone never marks the order suspicious.
		addSoftFlag(verdict, FlagGPSMissing, true)
		return
	}

	distance := geo.DistanceMeters(
		order.ReferenceLocation.Lat, order.ReferenceLocation.Lng,
		*closing.Latitude, *closing.Longitude,
	)
	if distance > thresholds.GPSMismatchMeters {
		addFlag(verdict, FlagGPSMismatch, true)
		addFlag(verdict, FlagDistanceOff, math.Round(distance))
	}
}

func checkDuration(closing Closing, thresholds config.AuditConfig, verdict *Verdict) {
	if closing.DurationMinutes == nil {
		return
	}
	minutes := *closing.DurationMinutes
	if minutes < thresholds.MinDurationMinutes {
		addFlag(verdict, FlagTooFast, true)
	}
	if minutes > thresholds.MaxDurationMinutes {
		addFlag(verdict, FlagTooSlow, true)
	}
}

func addFlag(verdict *Verdict, name string, value any) {
	addSoftFlag(verdict, name, value)
	verdict.Flagged = true
}

func addSoftFlag(verdict *Verdict, name string, value any) {
	verdict.Flags[name] = value
	verdict.FlagNames = append(verdict.FlagNames, name)
}
