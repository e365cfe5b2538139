package enums

// Well-known actors recorded in the order status history.
const (
	ActorSystem = "system"
	ActorAPI    = "api"
)
