package orders

import "github.com/Nubiru/chamana-sub000/pkg/enums"

// validNext is the whole lifecycle. Terminal states have no exits, so any
// richer catalog added later only needs new entries here.
var validNext = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusCompleted, enums.OrderStatusCancelled},
	enums.OrderStatusCompleted: {},
	enums.OrderStatusCancelled: {},
}

// CanTransition reports whether the lifecycle permits moving from one status
// to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range validNext[from] {
		if next == to {
			return true
		}
	}
	return false
}
