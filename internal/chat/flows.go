package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/medspa-demo-receptionist/internal/analytics"
	"github.com/wolfman30/medspa-demo-receptionist/internal/intent"
	"github.com/wolfman30/medspa-demo-receptionist/internal/safety"
	"github.com/wolfman30/medspa-demo-receptionist/internal/schedule"
)

// handleChipLocked returns the transcript index new messages start at,
// which is zero after a replay.
func (m *Machine) handleChipLocked(chip Chip, start int) int {
	if m.state == StateBotoxContactCollection && !contactExitAction(chip.Action) {
		m.repromptContactLocked()
		return start
	}

	switch chip.Action {
	case ActionReplay:
		m.resetLocked()
		m.emitLocked(analytics.KindDemoReplayed, nil)
		return 0
	case ActionBookConsult:
		m.consultLocked()
		return start
	case ActionStartPilot:
		m.pilotLocked()
		return start
	}

	if m.state.Terminal() {
		m.closingLocked()
		return start
	}
	if chip.Action == ActionMainMenu {
		m.mainMenuLocked()
		return start
	}

	switch m.state {
	case StateBotoxAllergyCheck:
		switch chip.Action {
		case ActionYes:
			m.allergyReportedLocked()
		case ActionNo:
			m.offerSlotsLocked()
		default:
			m.routeChipLocked(chip)
		}
	case StateBotoxSlotSelection:
		if slot, ok := m.offeredSlot(chip); ok {
			m.selectSlotLocked(slot)
			return start
		}
		m.routeChipLocked(chip)
	case StateRescheduleOptions:
		if slot, ok := m.offeredSlot(chip); ok {
			m.confirmRescheduleLocked(slot)
			return start
		}
		m.routeChipLocked(chip)
	default:
		m.routeChipLocked(chip)
	}
	return start
}

// contactExitAction reports whether a chip may leave contact collection
// before the booking is complete.
func contactExitAction(a ChipAction) bool {
	return a == ActionReplay || a == ActionBookConsult || a == ActionMainMenu
}

// routeChipLocked maps a chip straight to a sub-flow without classifying.
func (m *Machine) routeChipLocked(chip Chip) {
	switch chip.Action {
	case ActionBook:
		m.emitIntentLocked(intent.IntentBookBotox, 1.0)
		m.startBookingLocked(intent.IntentBookBotox, chip.Value, "")
	case ActionPricing:
		m.emitIntentLocked(intent.IntentPricing, 1.0)
		m.pricingLocked(chip.Value)
	case ActionReschedule:
		m.emitIntentLocked(intent.IntentReschedule, 1.0)
		m.rescheduleLocked()
	case ActionFAQ:
		m.emitIntentLocked(intent.IntentFAQGeneral, 1.0)
		m.faqMenuLocked()
	case ActionFAQTopic:
		topic, ok := faqTopicByID(chip.Value)
		if !ok {
			topic, _ = faqTopicByID(defaultFAQTopic)
		}
		m.answerFAQLocked(topic)
	default:
		m.mainMenuLocked()
	}
}

func (m *Machine) handleTextLocked(text string) {
	if !m.state.Terminal() && m.screener.DetectContraindications(text) {
		m.contraindicationLocked(text)
		return
	}

	switch m.state {
	case StatePricingResponse:
		m.pricingAnswerLocked(text)
	case StateIdle, StateGreeting, StateIntentDetection, StateClarificationNeeded, StateFAQResponse:
		m.detectIntentLocked(text)
	case StateBotoxAllergyCheck:
		m.allergyAnswerLocked(text)
	case StateBotoxSlotSelection:
		if slot, ok := matchSlot(text, m.offeredSlots); ok {
			m.selectSlotLocked(slot)
			return
		}
		m.offerSlotsLocked()
	case StateBotoxContactCollection:
		m.collectContactLocked(text)
	case StateRescheduleOptions:
		if slot, ok := matchSlot(text, m.offeredSlots); ok {
			m.confirmRescheduleLocked(slot)
			return
		}
		m.rescheduleLocked()
	case StateBookingSuccess, StateContraindication:
		m.closingLocked()
	}
}

func (m *Machine) detectIntentLocked(text string) {
	from := m.state
	res := m.classifier.Classify(text)
	m.classification = &res
	m.state = StateIntentDetection
	m.emitIntentLocked(res.Intent, res.Confidence)

	switch res.Intent {
	case intent.IntentBookBotox, intent.IntentAvailability:
		m.startBookingLocked(res.Intent, res.Entities.Service, res.Response)
	case intent.IntentPricing:
		m.pricingLocked(res.Entities.Service)
	case intent.IntentReschedule:
		m.rescheduleLocked()
	case intent.IntentFAQGeneral:
		m.answerFAQLocked(matchFAQTopic(text))
	case intent.IntentServices:
		m.servicesLocked(res)
	default:
		if from == StateFAQResponse {
			m.answerFAQLocked(matchFAQTopic(text))
			return
		}
		m.clarifyLocked()
	}
}

func (m *Machine) emitIntentLocked(in intent.Intent, confidence float64) {
	m.emitLocked(analytics.KindIntentClassified, func(e *analytics.Event) {
		e.Intent = string(in)
		e.Confidence = confidence
	})
	m.logger.Debug("chat: intent classified", "intent", in, "confidence", confidence, "state", m.state)
}

func (m *Machine) enterFlowLocked(in intent.Intent, flow Flow, next State) {
	m.intent = in
	m.flows[flow] = true
	m.state = next
}

func (m *Machine) serviceOr(service string) string {
	if service != "" {
		return service
	}
	if m.booking.Service != "" {
		return m.booking.Service
	}
	return intent.DefaultService
}

func (m *Machine) startBookingLocked(in intent.Intent, service, text string) {
	service = m.serviceOr(service)
	m.booking = BookingData{Service: service}
	m.selectedSlot = nil
	m.offeredSlots = nil
	m.confirmation = nil
	if text == "" {
		text = intent.Render(intent.IntentBookBotox, intent.Entities{Service: service}).Response
	}
	m.enterFlowLocked(in, FlowBooking, StateBotoxAllergyCheck)
	m.appendAILocked(Message{Text: text, Chips: yesNoChips()})
}

func (m *Machine) allergyAnswerLocked(text string) {
	if flags := m.screener.DetectSafetyFlags(text, treatmentFor(m.booking.Service)); len(flags) > 0 {
		m.addFlagsLocked(flags)
		m.emitLocked(analytics.KindSafetyFlagRaised, func(e *analytics.Event) {
			e.FlagIDs = safety.FlagIDs(flags)
			e.Flow = string(FlowBooking)
		})
	}
	yes, ok := parseYesNo(text)
	switch {
	case !ok:
		m.appendAILocked(Message{
			Text:  fmt.Sprintf("Just a quick yes or no: any allergies to %s, or are you pregnant or nursing?", m.booking.Service),
			Chips: yesNoChips(),
		})
	case yes:
		m.allergyReportedLocked()
	default:
		m.offerSlotsLocked()
	}
}

func (m *Machine) allergyReportedLocked() {
	m.addFlagIDLocked("active_ingredient_allergy")
	m.emitLocked(analytics.KindSafetyFlagRaised, func(e *analytics.Event) {
		e.FlagIDs = []string{"active_ingredient_allergy"}
		e.Flow = string(FlowBooking)
	})
	m.state = StateContraindication
	m.appendAILocked(Message{
		Text:  fmt.Sprintf("Thanks for letting me know. With a possible allergy, a provider needs to review your history before any %s treatment, so I can't book it online. I can set up a free consult instead.", m.booking.Service),
		Chips: consultChips(),
	})
}

func (m *Machine) contraindicationLocked(text string) {
	res := m.classifier.Classify(text)
	m.classification = &res
	m.intent = intent.IntentSafety

	flags := m.screener.DetectSafetyFlags(text, treatmentFor(m.serviceOr(res.Entities.Service)))
	m.addFlagsLocked(flags)
	m.emitLocked(analytics.KindSafetyFlagRaised, func(e *analytics.Event) {
		e.FlagIDs = safety.FlagIDs(flags)
		e.Intent = string(intent.IntentSafety)
	})
	m.logger.Info("chat: safety redirect", "flags", safety.FlagIDs(flags), "from_state", m.state)

	recommendation := "A licensed provider should review this before any treatment is booked."
	if len(flags) > 0 {
		recommendation = flags[0].Recommendation
	}
	m.state = StateContraindication
	m.appendAILocked(Message{
		Text:  "Thanks for sharing that. " + recommendation + " I'd love to set you up with a free consult instead.",
		Chips: consultChips(),
	})
}

func (m *Machine) offerSlotsLocked() {
	slots := m.provider.DemoSlots()
	m.offeredSlots = slots
	m.state = StateBotoxSlotSelection
	m.appendAILocked(Message{
		Text:  fmt.Sprintf("You're all clear. I have two %s openings this week:", m.booking.Service),
		Chips: slotChips(slots),
	})
}

func (m *Machine) offeredSlot(chip Chip) (schedule.TimeSlot, bool) {
	if chip.Action != ActionSelectSlot {
		return schedule.TimeSlot{}, false
	}
	for _, s := range m.offeredSlots {
		if s.ID == chip.Value {
			return s, true
		}
	}
	return matchSlot(chip.Label, m.offeredSlots)
}

func (m *Machine) selectSlotLocked(slot schedule.TimeSlot) {
	m.selectedSlot = &slot
	m.state = StateBotoxContactCollection
	m.appendAILocked(Message{
		Text:          slot.Label() + " it is! I'll hold it for you. What's your first name?",
		RequiresInput: InputName,
	})
}

func (m *Machine) collectContactLocked(text string) {
	if m.booking.FirstName == "" {
		switch {
		case looksLikePhone(text):
			m.appendAILocked(Message{
				Text:          "Let's start with your first name, then I'll grab your number.",
				RequiresInput: InputName,
			})
		case !schedule.IsValidName(text):
			m.appendAILocked(Message{
				Text:          "Hmm, I didn't catch a name there. What's your first name?",
				RequiresInput: InputName,
			})
		default:
			m.booking.FirstName = strings.Fields(text)[0]
			m.appendAILocked(Message{
				Text:          fmt.Sprintf("Thanks, %s! What's the best mobile number for your confirmation text?", m.booking.FirstName),
				RequiresInput: InputPhone,
			})
		}
		return
	}

	if !schedule.IsValidPhone(text) {
		m.appendAILocked(Message{
			Text:          "That doesn't look like a 10-digit number. Could you try again?",
			RequiresInput: InputPhone,
		})
		return
	}
	m.booking.Phone = schedule.DigitsOnly(text)
	m.completeBookingLocked()
}

// repromptContactLocked repeats the pending field request.
func (m *Machine) repromptContactLocked() {
	if m.booking.FirstName == "" {
		m.appendAILocked(Message{
			Text:          "Let's finish your booking first. What's your first name?",
			RequiresInput: InputName,
		})
		return
	}
	m.appendAILocked(Message{
		Text:          fmt.Sprintf("Almost done, %s. What's the best mobile number for your confirmation text?", m.booking.FirstName),
		RequiresInput: InputPhone,
	})
}

func (m *Machine) completeBookingLocked() {
	slot := *m.selectedSlot
	m.confirmation = &Confirmation{
		Slot:      slot,
		Service:   m.booking.Service,
		FirstName: m.booking.FirstName,
		Phone:     m.booking.Phone,
	}
	m.state = StateBookingSuccess
	m.emitLocked(analytics.KindBookingCompleted, func(e *analytics.Event) {
		e.Intent = string(m.intent)
		e.Flow = string(FlowBooking)
	})
	m.logger.Info("chat: booking completed", "slot_id", slot.ID, "service", m.booking.Service)

	m.appendAILocked(Message{
		Text: fmt.Sprintf("You're booked, %s! %s at %s on %s at %s.",
			m.booking.FirstName, m.booking.Service, m.clinicName, longDate(slot), slot.DisplayTime),
		Cards: []Card{
			{Kind: CardCalendar, Title: "Added to Calendar", Detail: slot.Label()},
			{Kind: CardSMS, Title: "SMS confirmation sent", Detail: "Sent to " + formatPhone(m.booking.Phone)},
			{Kind: CardPolicy, Title: "24-hour cancellation policy", Detail: "A reminder goes out the day before"},
		},
	})
	m.crossSellLocked()
}

func (m *Machine) rescheduleLocked() {
	existing := m.provider.MockExistingBooking()
	m.existing = &existing
	m.booking.Service = existing.Service
	opts := m.provider.RescheduleOptions(existing.Slot.ID)
	m.offeredSlots = opts
	m.enterFlowLocked(intent.IntentReschedule, FlowReschedule, StateRescheduleOptions)
	m.appendAILocked(Message{
		Text: fmt.Sprintf("I found your %s appointment with %s on %s. Here are two other openings:",
			existing.Service, existing.Provider, existing.Slot.Label()),
		Chips: slotChips(opts),
	})
}

func (m *Machine) confirmRescheduleLocked(slot schedule.TimeSlot) {
	m.selectedSlot = &slot
	conf := &Confirmation{Slot: slot, Service: m.booking.Service, Rescheduled: true}
	if m.existing != nil {
		prev := m.existing.Slot
		conf.Previous = &prev
	}
	m.confirmation = conf
	m.state = StateBookingSuccess
	m.emitLocked(analytics.KindBookingCompleted, func(e *analytics.Event) {
		e.Intent = string(intent.IntentReschedule)
		e.Flow = string(FlowReschedule)
	})

	from := "your old time"
	if conf.Previous != nil {
		from = conf.Previous.Label()
	}
	m.appendAILocked(Message{
		Text: fmt.Sprintf("Done! Your %s appointment moved from %s to %s.", conf.Service, from, slot.Label()),
		Cards: []Card{
			{Kind: CardCalendar, Title: "Calendar updated", Detail: slot.Label()},
			{Kind: CardSMS, Title: "SMS confirmation sent", Detail: "Sent to the number on file"},
			{Kind: CardPolicy, Title: "24-hour cancellation policy", Detail: "A reminder goes out the day before"},
		},
	})
	m.crossSellLocked()
}

func (m *Machine) crossSellLocked() {
	m.appendAILocked(Message{
		Text:  "That booking took under a minute with zero staff time. Want a receptionist like this answering for your med spa? Start a 30-day pilot.",
		Chips: closingChips(),
	})
}

func (m *Machine) pricingLocked(service string) {
	service = m.serviceOr(service)
	m.booking.Service = service
	m.enterFlowLocked(intent.IntentPricing, FlowPricing, StatePricingResponse)
	res := intent.Render(intent.IntentPricing, intent.Entities{Service: service})
	m.appendAILocked(Message{
		Text: res.Response,
		Chips: []Chip{
			bookChip(service),
			{Label: LabelAsk, Action: ActionFAQ},
			{Label: LabelMainMenu, Action: ActionMainMenu},
		},
	})
}

// pricingAnswerLocked treats a bare yes/no as the answer to the booking
// offer; anything else is classified as a new question.
func (m *Machine) pricingAnswerLocked(text string) {
	yes, ok := yesNoWord(text)
	switch {
	case !ok:
		m.detectIntentLocked(text)
	case yes:
		m.emitIntentLocked(intent.IntentBookBotox, 1.0)
		m.startBookingLocked(intent.IntentBookBotox, m.booking.Service, "")
	default:
		m.mainMenuLocked()
	}
}

func (m *Machine) faqMenuLocked() {
	m.enterFlowLocked(intent.IntentFAQGeneral, FlowFAQ, StateFAQResponse)
	m.appendAILocked(Message{
		Text:  "Ask me anything about treatments, or pick a common question:",
		Chips: faqMenuChips(),
	})
}

func (m *Machine) answerFAQLocked(topic faqTopic) {
	m.enterFlowLocked(intent.IntentFAQGeneral, FlowFAQ, StateFAQResponse)
	m.appendAILocked(Message{
		Text: topic.answer,
		Chips: []Chip{
			bookChip(m.serviceOr("")),
			{Label: LabelPricing, Action: ActionPricing},
			{Label: LabelAskAnother, Action: ActionFAQ},
		},
	})
}

func (m *Machine) servicesLocked(res intent.Result) {
	m.enterFlowLocked(intent.IntentServices, FlowFAQ, StateFAQResponse)
	m.appendAILocked(Message{Text: res.Response, Chips: ChipsFromLabels(res.Chips)})
}

func (m *Machine) clarifyLocked() {
	m.state = StateClarificationNeeded
	m.appendAILocked(Message{
		Text:  fmt.Sprintf("I'm not sure I understood %q. I can help you book, check prices, reschedule, or answer treatment questions.", m.lastUserInput),
		Chips: mainMenuChips(),
	})
}

func (m *Machine) mainMenuLocked() {
	m.state = StateIntentDetection
	m.appendAILocked(Message{Text: "Sure! What else can I help with?", Chips: mainMenuChips()})
}

func (m *Machine) closingLocked() {
	if m.state == StateContraindication {
		m.appendAILocked(Message{
			Text:  "A provider will be in touch about a consult. Tap below to book it, or replay the demo.",
			Chips: consultChips(),
		})
		return
	}
	m.appendAILocked(Message{
		Text:  "You're all set! Tap below to start a pilot or replay the demo.",
		Chips: closingChips(),
	})
}

func (m *Machine) consultLocked() {
	m.commercial = true
	chips := []Chip{{Label: LabelReplay, Action: ActionReplay}}
	if !m.state.Terminal() {
		chips = append([]Chip{{Label: LabelMainMenu, Action: ActionMainMenu}}, chips...)
	}
	m.appendAILocked(Message{
		Text:  fmt.Sprintf("Done! A provider from %s will text you within one business day to set up a free consult.", m.clinicName),
		Chips: chips,
	})
}

func (m *Machine) pilotLocked() {
	m.commercial = true
	m.appendAILocked(Message{
		Text:  "Love it. Your 30-day pilot starts with a 15-minute setup call. We connect your booking calendar and go live the same week.",
		Chips: []Chip{{Label: LabelReplay, Action: ActionReplay}},
	})
}

func (m *Machine) addFlagsLocked(flags []safety.Flag) {
	for _, f := range flags {
		m.addFlagIDLocked(f.ID)
	}
}

func (m *Machine) addFlagIDLocked(id string) {
	for _, existing := range m.flagIDs {
		if existing == id {
			return
		}
	}
	m.flagIDs = append(m.flagIDs, id)
}

func treatmentFor(service string) safety.Treatment {
	return safety.Treatment(strings.ToLower(service))
}

// matchSlot picks the slot whose time appears in text, defaulting to the
// first offered slot.
func matchSlot(text string, slots []schedule.TimeSlot) (schedule.TimeSlot, bool) {
	if len(slots) == 0 {
		return schedule.TimeSlot{}, false
	}
	lowered := strings.ToLower(text)
	compact := strings.ReplaceAll(lowered, " ", "")
	for _, s := range slots {
		display := strings.ToLower(s.DisplayTime)
		clock := strings.Fields(display)[0]
		if strings.Contains(lowered, display) ||
			strings.Contains(compact, strings.ReplaceAll(display, " ", "")) ||
			strings.Contains(lowered, s.Time) ||
			strings.Contains(lowered, clock) {
			return s, true
		}
	}
	return slots[0], true
}

var yesWords = map[string]bool{"yes": true, "yeah": true, "yep": true, "yup": true, "y": true, "sure": true, "correct": true}
var noWords = map[string]bool{"no": true, "nope": true, "nah": true, "n": true, "none": true, "not": true, "never": true}

func parseYesNo(text string) (yes bool, ok bool) {
	if yes, ok := yesNoWord(text); ok {
		return yes, true
	}
	lowered := strings.ToLower(strings.TrimSpace(text))
	if strings.Contains(lowered, "allerg") || strings.HasPrefix(lowered, "i do") || strings.HasPrefix(lowered, "i am") {
		return true, true
	}
	return false, false
}

// yesNoWord only looks at the leading word.
func yesNoWord(text string) (yes bool, ok bool) {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(text)), func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	})
	if len(fields) == 0 {
		return false, false
	}
	if yesWords[fields[0]] {
		return true, true
	}
	if noWords[fields[0]] {
		return false, true
	}
	return false, false
}

func looksLikePhone(text string) bool {
	return len(schedule.DigitsOnly(text)) >= 7
}

func formatPhone(digits string) string {
	if len(digits) != 10 {
		return digits
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
}

func longDate(slot schedule.TimeSlot) string {
	t, err := time.Parse("2006-01-02", slot.Date)
	if err != nil {
		return slot.Day
	}
	return t.Format("Monday, January 2")
}
