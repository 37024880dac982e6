package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ises-energia/scrc-backend/pkg/config"
	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/types"
)

var thresholds = config.AuditConfig{
	GPSMismatchMeters:  200,
	MinDurationMinutes: 5,
	MaxDurationMinutes: 120,
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

func orderAt(lat, lng float64) *models.Order {
	return &models.Order{
		ReferenceLocation: &types.GeographyPoint{Lat: lat, Lng: lng},
	}
}

func TestValidateClosureCleanExecution(t *testing.T) {
	order := orderAt(4.6000, -74.0800)
	verdict := ValidateClosure(order, Closing{
		Latitude:        ptrF(4.6001),
		Longitude:       ptrF(-74.0800),
		DurationMinutes: ptrI(30),
	}, thresholds)

	assert.False(t, verdict.Flagged)
	assert.Empty(t, verdict.Flags)
}

func TestValidateClosureGPSMismatch(t *testing.T) {
	order := orderAt(4.6000, -74.0800)
	// ~0.0027 degrees latitude is roughly 300 meters.
	verdict := ValidateClosure(order, Closing{
		Latitude:        ptrF(4.6027),
		Longitude:       ptrF(-74.0800),
		DurationMinutes: ptrI(30),
	}, thresholds)

	assert.True(t, verdict.Flagged)
	assert.Equal(t, true, verdict.Flags[FlagGPSMismatch])

	distance, ok := verdict.Flags[FlagDistanceOff].(float64)
	require.True(t, ok, "distance_off must carry the measured distance")
	assert.InDelta(t, 300, distance, 15)
	assert.Equal(t, distance, float64(int(distance)), "distance_off is rounded to whole meters")
}

func TestValidateClosureBoundaryDistanceNotFlagged(t *testing.T) {
	order := orderAt(4.6000, -74.0800)
	// ~0.00178 degrees is just under 200 meters.
	verdict := ValidateClosure(order, Closing{
		Latitude:        ptrF(4.60178),
		Longitude:       ptrF(-74.0800),
		DurationMinutes: ptrI(30),
	}, thresholds)

	assert.False(t, verdict.Flagged, "distances at or under the threshold pass")
}

func TestValidateClosureMissingGPSIsSoft(t *testing.T) {
	order := orderAt(4.6000, -74.0800)
	verdict := ValidateClosure(order, Closing{DurationMinutes: ptrI(30)}, thresholds)

	assert.False(t, verdict.Flagged, "gps_missing alone never marks the order")
	assert.Equal(t, true, verdict.Flags[FlagGPSMissing])
	assert.NotContains(t, verdict.Flags, FlagGPSMismatch)
	assert.NotContains(t, verdict.Flags, FlagDistanceOff)
}

func TestValidateClosureMissingReferenceIsSoft(t *testing.T) {
	verdict := ValidateClosure(&models.Order{}, Closing{
		Latitude:        ptrF(4.6),
		Longitude:       ptrF(-74.08),
		DurationMinutes: ptrI(30),
	}, thresholds)

	assert.False(t, verdict.Flagged)
	assert.Equal(t, true, verdict.Flags[FlagGPSMissing])
}

func TestValidateClosureDurationBounds(t *testing.T) {
	order := orderAt(4.6000, -74.0800)
	cases := []struct {
		name    string
		minutes int
		flag    string
		flagged bool
	}{
		{"four minutes too fast", 4, FlagTooFast, true},
		{"five minutes ok", 5, "", false},
		{"hundred twenty ok", 120, "", false},
		{"hundred twenty one too slow", 121, FlagTooSlow, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := ValidateClosure(order, Closing{
				Latitude:        ptrF(4.6000),
				Longitude:       ptrF(-74.0800),
				DurationMinutes: ptrI(tc.minutes),
			}, thresholds)

			assert.Equal(t, tc.flagged, verdict.Flagged)
			if tc.flag != "" {
				assert.Equal(t, true, verdict.Flags[tc.flag])
			}
		})
	}
}

func TestValidateClosureFlagsAreAdditive(t *testing.T) {
	order := orderAt(4.6000, -74.0800)
	verdict := ValidateClosure(order, Closing{DurationMinutes: ptrI(2)}, thresholds)

	assert.True(t, verdict.Flagged)
	assert.Equal(t, true, verdict.Flags[FlagGPSMissing])
	assert.Equal(t, true, verdict.Flags[FlagTooFast])
	assert.Len(t, verdict.FlagNames, 2)
}
