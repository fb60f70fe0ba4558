package intent

import "strings"

type entityTerm struct {
	value string
	terms []string
}

var serviceTerms = []entityTerm{
	{"Botox", []string{"botox", "dysport", "xeomin", "neurotoxin", "wrinkle relaxer", "tox"}},
	{"Fillers", []string{"filler", "juvederm", "restylane", "lip", "cheek"}},
	{"Laser", []string{"laser", "ipl", "hair removal"}},
	{"Facials", []string{"facial", "hydrafacial", "diamondglow", "peel"}},
}

var timeframeTerms = []entityTerm{
	{"today", []string{"today", "tonight"}},
	{"tomorrow", []string{"tomorrow"}},
	{"this week", []string{"this week"}},
	{"next week", []string{"next week"}},
	{"weekend", []string{"weekend", "saturday", "sunday"}},
	{"monday", []string{"monday"}},
	{"tuesday", []string{"tuesday"}},
	{"wednesday", []string{"wednesday"}},
	{"thursday", []string{"thursday"}},
	{"friday", []string{"friday"}},
}

var concernTerms = []entityTerm{
	{"forehead lines", []string{"forehead"}},
	{"crow's feet", []string{"crow's feet", "crows feet"}},
	{"frown lines", []string{"frown", "11s", "elevens"}},
	{"wrinkles", []string{"wrinkle", "fine lines"}},
	{"volume loss", []string{"volume", "hollow", "thin lips"}},
	{"acne scarring", []string{"acne", "scar"}},
	{"sun damage", []string{"sun damage", "sun spots", "dark spots"}},
	{"unwanted hair", []string{"unwanted hair", "hair removal"}},
}

// ExtractEntities pulls service, timeframe and concern keywords from input.
// The first matching term in table order wins.
func ExtractEntities(input string) Entities {
	lowered := strings.ToLower(input)
	return Entities{
		Service:   firstMatch(lowered, serviceTerms),
		Timeframe: firstMatch(lowered, timeframeTerms),
		Concern:   firstMatch(lowered, concernTerms),
	}
}

func firstMatch(lowered string, table []entityTerm) string {
	if strings.TrimSpace(lowered) == "" {
		return ""
	}
	for _, entry := range table {
		for _, term := range entry.terms {
			if strings.Contains(lowered, term) {
				return entry.value
			}
		}
	}
	return ""
}
