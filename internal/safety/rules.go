package safety

import "regexp"

type rule struct {
	id              string
	severity        Severity
	category        Category
	description     string
	recommendation  string
	requiresConsult bool
	patterns        []*regexp.Regexp
	keywords        []string
}

func (r rule) match(text string) string {
	for i, p := range r.patterns {
		if p.MatchString(text) {
			return r.keywords[i]
		}
	}
	return ""
}

func (r rule) flag(keyword string) Flag {
	return Flag{
		ID:              r.id,
		Severity:        r.severity,
		Category:        r.category,
		Description:     r.description,
		Recommendation:  r.recommendation,
		RequiresConsult: r.requiresConsult || r.severity == SeverityHigh,
		MatchedKeyword:  keyword,
	}
}

// newRule compiles keyword patterns case-insensitively. Keywords are regex
// fragments matched as substrings.
func newRule(id string, sev Severity, cat Category, desc, rec string, consult bool, keywords ...string) rule {
	r := rule{
		id:              id,
		severity:        sev,
		category:        cat,
		description:     desc,
		recommendation:  rec,
		requiresConsult: consult,
		keywords:        keywords,
	}
	for _, kw := range keywords {
		r.patterns = append(r.patterns, regexp.MustCompile(`(?i)`+kw))
	}
	return r
}

const consultRecommendation = "A licensed provider should review this before any treatment is booked."

var highRules = []rule{
	newRule("pregnancy", SeverityHigh, CategoryCondition,
		"Pregnancy or breastfeeding",
		"Neurotoxins and most injectables are deferred during pregnancy and nursing. "+consultRecommendation, true,
		`pregnan`, `expecting a baby`, `breast\s*feeding`, `breastfeed`, `nursing (my|a) (baby|newborn)`, `\bnursing\b`, `trying to conceive`),
	newRule("neuromuscular_disease", SeverityHigh, CategoryMedical,
		"Neuromuscular disorder",
		"Botulinum toxin can worsen neuromuscular conditions. "+consultRecommendation, true,
		`myasthenia`, `lambert[\s-]?eaton`, `\bals\b`, `lou gehrig`, `neuromuscular`),
	newRule("anticoagulants", SeverityHigh, CategoryMedication,
		"Blood thinners",
		"Anticoagulants raise bruising and bleeding risk with injections. "+consultRecommendation, true,
		`blood[\s-]?thinner`, `anticoagula`, `warfarin`, `coumadin`, `eliquis`, `apixaban`, `xarelto`, `rivaroxaban`, `heparin`, `plavix`, `clopidogrel`),
	newRule("active_ingredient_allergy", SeverityHigh, CategoryAllergy,
		"Allergy to an active ingredient",
		"Known allergies to botulinum toxin, lidocaine or hyaluronic acid rule out same-day booking. "+consultRecommendation, true,
		`allergic to (botox|dysport|xeomin|botulinum|neurotoxin|lidocaine|hyaluronic|filler|albumin)`,
		`(botox|dysport|xeomin|botulinum|lidocaine|hyaluronic acid|filler|albumin) allerg`,
		`allerg(y|ies) to (botox|dysport|xeomin|botulinum|lidocaine|hyaluronic|filler|albumin)`,
		`reaction to (botox|dysport|xeomin|botulinum|lidocaine|filler)`),
}

var mediumRules = []rule{
	newRule("autoimmune_condition", SeverityMedium, CategoryCondition,
		"Autoimmune condition",
		"Autoimmune conditions can change healing and filler response; flag for provider review.", true,
		`autoimmune`, `\blupus\b`, `rheumatoid`, `multiple sclerosis`, `scleroderma`, `psoriasis`, `hashimoto`),
	newRule("interacting_medication", SeverityMedium, CategoryMedication,
		"Medication that interacts with treatment",
		"Some antibiotics, retinoids and NSAIDs interact with injectables or lasers; list them at intake.", true,
		`accutane`, `isotretinoin`, `aminoglycoside`, `gentamicin`, `\baspirin\b`, `ibuprofen`, `advil`, `motrin`, `fish oil`, `muscle relaxant`),
	newRule("implant_or_device", SeverityMedium, CategoryMedical,
		"Implant or permanent filler",
		"Existing implants or permanent fillers change injection planning.", true,
		`\bimplants?\b`, `pacemaker`, `permanent filler`, `silicone injection`),
}

var lowRules = []rule{
	newRule("general_allergy", SeverityLow, CategoryAllergy,
		"General allergy mention",
		"Collect allergy details at intake.", false,
		`allerg`),
	newRule("general_medication", SeverityLow, CategoryMedication,
		"General medication mention",
		"Collect current medications at intake.", false,
		`medication`, `\bmeds\b`, `prescription`, `supplement`),
}

var treatmentRules = map[Treatment][]rule{
	TreatmentBotox: {
		newRule("botox_facial_weakness", SeverityMedium, CategoryMedical,
			"Facial muscle weakness or droop",
			"Pre-existing ptosis or facial palsy needs provider assessment before neurotoxin.", true,
			`droopy (eyelid|brow)`, `ptosis`, `bell'?s palsy`, `muscle weakness`),
	},
	TreatmentFiller: {
		newRule("filler_active_infection", SeverityMedium, CategoryMedical,
			"Active infection or cold sores near treatment area",
			"Fillers are postponed until infections and cold sores clear.", true,
			`cold sore`, `herpes`, `\binfection\b`, `dental (work|cleaning|procedure)`),
	},
	TreatmentLaser: {
		newRule("laser_photosensitivity", SeverityMedium, CategoryCondition,
			"Recent tan or photosensitivity",
			"Recent sun exposure or photosensitizing products raise burn risk with lasers.", true,
			`\btan(ned|ning)?\b`, `sunburn`, `photosensitiv`, `retinol`, `tretinoin`, `self[\s-]?tanner`),
	},
}
