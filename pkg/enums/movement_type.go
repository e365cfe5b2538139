package enums

// MovementType classifies an inventory movement.
type MovementType string

const (
	MovementTypeEntry      MovementType = "entry"
	MovementTypeExit       MovementType = "exit"
	MovementTypeAdjustment MovementType = "adjustment"
	MovementTypeSale       MovementType = "sale"
)

func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeEntry, MovementTypeExit, MovementTypeAdjustment, MovementTypeSale:
		return true
	default:
		return false
	}
}
