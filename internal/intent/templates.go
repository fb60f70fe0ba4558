package intent

import "strings"

// DefaultService is assumed when no service entity was extracted.
const DefaultService = "Botox"

type template struct {
	response string
	chips    []string
}

var servicePricing = map[string]string{
	"Botox":   "$13 per unit, and most first visits use 20 to 40 units",
	"Fillers": "$650 per syringe, and most lip or cheek visits use one",
	"Laser":   "from $150 per session, usually in a package of six",
	"Facials": "from $175 per facial",
}

var templates = map[Intent]template{
	IntentBookBotox: {
		response: "Happy to get you in for {service}! Quick safety check first: any allergies to {service} or its ingredients, or are you pregnant or nursing?",
		chips:    []string{"Yes", "No"},
	},
	IntentAvailability: {
		response: "We have openings this week! Before I show you times, quick safety check: any allergies to {service}, or are you pregnant or nursing?",
		chips:    []string{"Yes", "No"},
	},
	IntentPricing: {
		response: "{service} is {price}. New clients get $50 off their first visit. Want me to grab you a time?",
		chips:    []string{"Book {service}", "Ask a question", "Main menu"},
	},
	IntentReschedule: {
		response: "No problem, let me pull up your appointment.",
	},
	IntentFAQGeneral: {
		response: "Good question about {service}.",
		chips:    []string{"Book {service}", "See pricing", "Ask another question"},
	},
	IntentServices: {
		response: "We offer Botox, fillers, laser treatments and facials. Botox is our most-booked service. What are you interested in?",
		chips:    []string{"Book Botox", "See pricing", "Ask a question"},
	},
	IntentSafety: {
		response: "Thanks for telling me. For your safety, {service} isn't something I can book directly in that situation, so a provider should talk with you first.",
		chips:    []string{"Book a consult", "Ask a question"},
	},
	IntentUnknown: {
		response: "I'm not sure I caught that. I can help you book, check prices, reschedule, or answer treatment questions.",
		chips:    []string{"Book Botox", "See pricing", "Reschedule", "Ask a question"},
	},
}

// Render fills the response template and chips for an intent.
func Render(in Intent, entities Entities) Result {
	tpl, ok := templates[in]
	if !ok {
		tpl = templates[IntentUnknown]
		in = IntentUnknown
	}
	service := entities.Service
	if service == "" {
		service = DefaultService
	}
	replacer := strings.NewReplacer("{service}", service, "{price}", servicePricing[service])

	chips := make([]string, 0, len(tpl.chips))
	for _, c := range tpl.chips {
		if len(chips) == MaxChips {
			break
		}
		chips = append(chips, replacer.Replace(c))
	}
	return Result{
		Intent:   in,
		Entities: entities,
		Response: replacer.Replace(tpl.response),
		Chips:    chips,
	}
}
