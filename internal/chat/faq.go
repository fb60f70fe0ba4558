package chat

import "strings"

type faqTopic struct {
	id       string
	label    string
	keywords []string
	answer   string
}

const defaultFAQTopic = "safety"

// faqTopics are matched in order; the first keyword hit wins.
var faqTopics = []faqTopic{
	{
		id:       "prep",
		label:    "How do I prep?",
		keywords: []string{"prep", "prepare", "before my", "before the", "ahead of"},
		answer:   "Skip alcohol, fish oil and ibuprofen for 24 hours beforehand to limit bruising, and come in with a clean face. That's it!",
	},
	{
		id:       "pain",
		label:    "Does it hurt?",
		keywords: []string{"hurt", "pain", "needle", "numb", "sting"},
		answer:   "Most clients describe it as a quick pinch. The needles are tiny and we can apply numbing cream if you'd like.",
	},
	{
		id:       "downtime",
		label:    "Downtime?",
		keywords: []string{"downtime", "recovery", "bruis", "swelling", "back to work", "workout"},
		answer:   "Basically none. You can go right back to work; just skip the gym and keep your head upright for about 4 hours.",
	},
	{
		id:       "policy",
		label:    "Cancellation policy",
		keywords: []string{"cancel", "policy", "deposit", "refund", "late"},
		answer:   "We ask for 24 hours notice to cancel or reschedule. Late cancellations forfeit the $50 deposit.",
	},
	{
		id:       "duration",
		label:    "How long does it last?",
		keywords: []string{"how long", "last", "wear off", "results", "kick in"},
		answer:   "Results show up in 3 to 5 days, peak at 2 weeks, and typically last 3 to 4 months.",
	},
	{
		id:       "safety",
		label:    "Is it safe?",
		keywords: []string{"safe", "side effect", "risk", "fda", "dangerous"},
		answer:   "Botox is FDA-approved and has been used cosmetically for over 20 years. Every treatment is done by a licensed injector after a short health screening.",
	},
}

func matchFAQTopic(text string) faqTopic {
	lowered := strings.ToLower(text)
	for _, t := range faqTopics {
		for _, kw := range t.keywords {
			if strings.Contains(lowered, kw) {
				return t
			}
		}
	}
	topic, _ := faqTopicByID(defaultFAQTopic)
	return topic
}

func faqTopicByID(id string) (faqTopic, bool) {
	for _, t := range faqTopics {
		if t.id == id {
			return t, true
		}
	}
	return faqTopic{}, false
}

func faqMenuChips() []Chip {
	ids := []string{"prep", "pain", "downtime", "safety"}
	out := make([]Chip, 0, len(ids))
	for _, id := range ids {
		t, _ := faqTopicByID(id)
		out = append(out, Chip{Label: t.label, Action: ActionFAQTopic, Value: t.id})
	}
	return out
}
