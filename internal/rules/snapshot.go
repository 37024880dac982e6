package rules

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/enums"
)

// MatrixRow holds the brigade types allowed for one zone code, split by
// territory kind.
type MatrixRow struct {
	Urban []enums.BrigadeType `json:"urban"`
	Rural []enums.BrigadeType `json:"rural"`
}

// Snapshot is an immutable view of the dispatch rules taken once per engine
// invocation. A concurrent settings update never changes decisions mid-batch.
type Snapshot struct {
	DefaultCapacity int
	Capacities      map[enums.BrigadeType]int
	Matrix          map[string]MatrixRow
	RuralPatterns   []string
	UrbanPatterns   []string
	HighDebtFloor   decimal.Decimal
}

// CapacityFor returns the daily capacity for a brigade type, falling back to
// the configured default when the type has no explicit entry.
func (s *Snapshot) CapacityFor(t enums.BrigadeType) int {
	if s == nil {
		return 0
	}
	if c, ok := s.Capacities[t]; ok {
		return c
	}
	return s.DefaultCapacity
}

// EligibleTypes returns the brigade types allowed for a zone code and
// territory kind. A zone code without a matrix row is eligible for nothing.
func (s *Snapshot) EligibleTypes(zoneCode string, kind enums.ZoneKind) []enums.BrigadeType {
	if s == nil {
		return nil
	}
	row, ok := s.Matrix[zoneCode]
	if !ok {
		return nil
	}
	if kind == enums.ZoneKindRural {
		return row.Rural
	}
	return row.Urban
}

// IsEligible reports whether a brigade type may serve the order. Orders
// pinned to a required type bypass the matrix; high-debt mini-canasta work
// is restricted to CANASTA crews.
func (s *Snapshot) IsEligible(order *models.Order, brigadeType enums.BrigadeType) bool {
	if s == nil || order == nil {
		return false
	}
	if order.RequiredBrigadeType != nil {
		return *order.RequiredBrigadeType == brigadeType
	}
	if order.ZoneCode == "N" && !s.HighDebtFloor.IsZero() && order.AmountDue.GreaterThan(s.HighDebtFloor) {
		return brigadeType == enums.BrigadeTypeCanasta
	}
	for _, candidate := range s.EligibleTypes(order.ZoneCode, order.ZoneKind) {
		if candidate == brigadeType {
			return true
		}
	}
	return false
}

// ClassifyZone decides whether an address belongs to the urban or rural
// matrix arm. Rural markers win; unrecognized addresses are treated as rural.
func (s *Snapshot) ClassifyZone(address string) enums.ZoneKind {
	if s == nil {
		return enums.ZoneKindRural
	}
	upper := strings.ToUpper(address)
	for _, pattern := range s.RuralPatterns {
		if strings.Contains(upper, pattern) {
			return enums.ZoneKindRural
		}
	}
	for _, pattern := range s.UrbanPatterns {
		if strings.Contains(upper, pattern) {
			return enums.ZoneKindUrban
		}
	}
	return enums.ZoneKindRural
}

// ZoneCodeFromStrategicLine extracts the matrix key from the commercial
// strategic line field.
func ZoneCodeFromStrategicLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed[:1])
}
