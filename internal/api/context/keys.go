package context

type Key string

const (
	Claims     Key = "claims"
	Params     Key = "params"
	DeliveryID Key = "delivery_id"
)
