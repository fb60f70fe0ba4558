package chat

// Plan is the commercial plan hint offered with the call to action.
type Plan string

const (
	PlanPilot Plan = "pilot"
	PlanFull  Plan = "full"
)

// fullPlanFlows is how many distinct sub-flows a visitor must explore
// before the full plan is suggested.
const fullPlanFlows = 2

// CTA tells the UI whether to reveal checkout and which plan to lead with.
type CTA struct {
	Ready bool `json:"ready"`
	Plan  Plan `json:"plan"`
}

// CallToAction reports the current call-to-action signal.
func (m *Machine) CallToAction() CTA {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctaLocked()
}

func (m *Machine) ctaLocked() CTA {
	plan := PlanPilot
	if len(m.flows) >= fullPlanFlows {
		plan = PlanFull
	}
	return CTA{Ready: m.state == StateBookingSuccess || m.commercial, Plan: plan}
}
