package chat

// State is a stage of the live demo conversation.
type State string

const (
	StateIdle                   State = "idle"
	StateGreeting               State = "greeting"
	StateIntentDetection        State = "intent_detection"
	StateBotoxAllergyCheck      State = "botox_allergy_check"
	StateContraindication       State = "contraindication_warning"
	StateBotoxSlotSelection     State = "botox_slot_selection"
	StateBotoxContactCollection State = "botox_contact_collection"
	StateBookingSuccess         State = "booking_success"
	StatePricingResponse        State = "pricing_response"
	StateRescheduleOptions      State = "reschedule_options"
	StateFAQResponse            State = "faq_response"
	StateClarificationNeeded    State = "clarification_needed"
)

// AllStates lists the closed state set.
var AllStates = []State{
	StateIdle,
	StateGreeting,
	StateIntentDetection,
	StateBotoxAllergyCheck,
	StateContraindication,
	StateBotoxSlotSelection,
	StateBotoxContactCollection,
	StateBookingSuccess,
	StatePricingResponse,
	StateRescheduleOptions,
	StateFAQResponse,
	StateClarificationNeeded,
}

// Terminal reports whether the conversation has ended in a booking or a
// consult handoff.
func (s State) Terminal() bool {
	return s == StateBookingSuccess || s == StateContraindication
}

// Valid reports whether s is one of AllStates.
func (s State) Valid() bool {
	for _, known := range AllStates {
		if s == known {
			return true
		}
	}
	return false
}

// Flow groups states into the sub-flows used for the plan hint.
type Flow string

const (
	FlowBooking    Flow = "booking"
	FlowPricing    Flow = "pricing"
	FlowReschedule Flow = "reschedule"
	FlowFAQ        Flow = "faq"
)
