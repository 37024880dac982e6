package rules

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/enums"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		DefaultCapacity: 20,
		Capacities: map[enums.BrigadeType]int{
			enums.BrigadeTypeLiviana: 30,
			enums.BrigadeTypeCanasta: 15,
		},
		Matrix: map[string]MatrixRow{
			"B": {
				Urban: []enums.BrigadeType{enums.BrigadeTypeLiviana},
				Rural: []enums.BrigadeType{enums.BrigadeTypePesadaDisponibilidad},
			},
			"N": {
				Urban: []enums.BrigadeType{enums.BrigadeTypeMiniCanasta},
				Rural: []enums.BrigadeType{enums.BrigadeTypePesadaDisponibilidad},
			},
		},
		RuralPatterns: []string{"VEREDA", "KM ", "FINCA"},
		UrbanPatterns: []string{"CALLE", "CRA ", "BARRIO"},
		HighDebtFloor: decimal.NewFromInt(1000000),
	}
}

func TestCapacityForFallsBackToDefault(t *testing.T) {
	s := testSnapshot()
	assert.Equal(t, 30, s.CapacityFor(enums.BrigadeTypeLiviana))
	assert.Equal(t, 20, s.CapacityFor(enums.BrigadeTypePesada))
}

func TestIsEligibleMatrixArms(t *testing.T) {
	s := testSnapshot()

	urban := &models.Order{ZoneCode: "B", ZoneKind: enums.ZoneKindUrban}
	assert.True(t, s.IsEligible(urban, enums.BrigadeTypeLiviana))
	assert.False(t, s.IsEligible(urban, enums.BrigadeTypePesadaDisponibilidad))

	rural := &models.Order{ZoneCode: "B", ZoneKind: enums.ZoneKindRural}
	assert.True(t, s.IsEligible(rural, enums.BrigadeTypePesadaDisponibilidad))
	assert.False(t, s.IsEligible(rural, enums.BrigadeTypeLiviana))
}

func TestIsEligibleFailsClosedOnUnknownZone(t *testing.T) {
	s := testSnapshot()
	order := &models.Order{ZoneCode: "Z", ZoneKind: enums.ZoneKindUrban}

	for _, bt := range []enums.BrigadeType{
		enums.BrigadeTypeLiviana,
		enums.BrigadeTypePesada,
		enums.BrigadeTypeCanasta,
	} {
		assert.False(t, s.IsEligible(order, bt), "zone without rule must be ineligible for %s", bt)
	}
}

func TestIsEligibleRequiredTypeBypassesMatrix(t *testing.T) {
	s := testSnapshot()
	required := enums.BrigadeTypeCanasta
	order := &models.Order{ZoneCode: "Z", RequiredBrigadeType: &required}

	assert.True(t, s.IsEligible(order, enums.BrigadeTypeCanasta))
	assert.False(t, s.IsEligible(order, enums.BrigadeTypeLiviana))
}

func TestIsEligibleHighDebtRestrictsToCanasta(t *testing.T) {
	s := testSnapshot()
	order := &models.Order{
		ZoneCode:  "N",
		ZoneKind:  enums.ZoneKindUrban,
		AmountDue: decimal.NewFromInt(1500000),
	}

	assert.True(t, s.IsEligible(order, enums.BrigadeTypeCanasta))
	assert.False(t, s.IsEligible(order, enums.BrigadeTypeMiniCanasta))

	order.AmountDue = decimal.NewFromInt(500000)
	assert.True(t, s.IsEligible(order, enums.BrigadeTypeMiniCanasta))
}

func TestClassifyZone(t *testing.T) {
	s := testSnapshot()

	assert.Equal(t, enums.ZoneKindRural, s.ClassifyZone("VEREDA EL PLACER KM 4"))
	assert.Equal(t, enums.ZoneKindUrban, s.ClassifyZone("Calle 45 # 12-30"))
	// Rural markers win even when urban markers are present.
	assert.Equal(t, enums.ZoneKindRural, s.ClassifyZone("FINCA LA MARIA CALLE VIEJA"))
	// Unrecognized addresses default to rural.
	assert.Equal(t, enums.ZoneKindRural, s.ClassifyZone("SECTOR SIN NOMBRE"))
}

func TestZoneCodeFromStrategicLine(t *testing.T) {
	require.Equal(t, "B", ZoneCodeFromStrategicLine("B1 - PERDIDAS"))
	require.Equal(t, "N", ZoneCodeFromStrategicLine(" n2"))
	require.Equal(t, "", ZoneCodeFromStrategicLine("  "))
}
