package enums

// BrigadeStatus marks whether a brigade can receive work.
type BrigadeStatus string

const (
	BrigadeStatusActive   BrigadeStatus = "active"
	BrigadeStatusInactive BrigadeStatus = "inactive"
)

func (s BrigadeStatus) Valid() bool {
	return s == BrigadeStatusActive || s == BrigadeStatusInactive
}

// BrigadeType classifies a crew by the equipment it carries. Names follow
// the fleet nomenclature used by the field operation.
type BrigadeType string

const (
	BrigadeTypeLiviana              BrigadeType = "SCR LIVIANA"
	BrigadeTypePesada               BrigadeType = "SCR PESADA"
	BrigadeTypePesadaDisponibilidad BrigadeType = "SCR PESADA DISPONIBILIDAD"
	BrigadeTypePesadaElite          BrigadeType = "SCR PESADA ELITE"
	BrigadeTypeMiniCanasta          BrigadeType = "SCR MINI CANASTA"
	BrigadeTypeCanasta              BrigadeType = "CANASTA"
)

func (t BrigadeType) Valid() bool {
	switch t {
	case BrigadeTypeLiviana, BrigadeTypePesada, BrigadeTypePesadaDisponibilidad,
		BrigadeTypePesadaElite, BrigadeTypeMiniCanasta, BrigadeTypeCanasta:
		return true
	}
	return false
}

// ZoneKind splits service territory into the matrix's urban and rural arms.
type ZoneKind string

const (
	ZoneKindUrban ZoneKind = "urban"
	ZoneKindRural ZoneKind = "rural"
)
