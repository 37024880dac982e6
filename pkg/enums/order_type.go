package enums

// OrderType is the field operation requested by the commercial system.
type OrderType string

const (
	OrderTypeCorte      OrderType = "corte"
	OrderTypeSuspension OrderType = "suspension"
	OrderTypeReconexion OrderType = "reconexion"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeCorte, OrderTypeSuspension, OrderTypeReconexion:
		return true
	}
	return false
}

// OrderTypeFromOSCode maps the upstream TIPO DE OS code to an order type.
func OrderTypeFromOSCode(code string) (OrderType, bool) {
	switch code {
	case "TO501":
		return OrderTypeSuspension, true
	case "TO502":
		return OrderTypeReconexion, true
	case "TO503":
		return OrderTypeCorte, true
	}
	return "", false
}

// Priority returns the dispatch rank for the type; lower runs first.
// Reconnections restore service and outrank everything else.
func (t OrderType) Priority() int {
	switch t {
	case OrderTypeReconexion:
		return 1
	case OrderTypeCorte:
		return 2
	case OrderTypeSuspension:
		return 3
	}
	return 99
}
