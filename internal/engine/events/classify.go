package events

import "umnico/internal/platform/models"

type Classification int

const (
	ClassNone Classification = iota
	ClassNewLead
	ClassNewCustomer
)

func (c Classification) String() string {
	switch c {
	case ClassNewLead:
		return "new_lead"
	case ClassNewCustomer:
		return "new_customer"
	}
	return "none"
}

// Classify maps the two independent flags onto one route. A new lead wins
// when both flags are set; anything but a literal true counts as unset.
func Classify(evt *models.Event) Classification {
	switch {
	case evt.NewLead():
		return ClassNewLead
	case evt.NewCustomer():
		return ClassNewCustomer
	}
	return ClassNone
}
