package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medspa-demo-receptionist/internal/safety"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

func newTestClassifier() *Classifier {
	return NewClassifier(safety.NewScreener(logging.New("error")))
}

func TestClassify_Intents(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		input string
		want  Intent
	}{
		{"Book a Botox slot", IntentBookBotox},
		{"I want botox", IntentBookBotox},
		{"How much does Botox cost?", IntentPricing},
		{"what's the price per unit", IntentPricing},
		{"I need to reschedule", IntentReschedule},
		{"Can I move my appointment to a different time?", IntentReschedule},
		{"Do you have openings this week?", IntentAvailability},
		{"Does Botox hurt?", IntentFAQGeneral},
		{"how long is the downtime", IntentFAQGeneral},
		{"What's your cancellation policy?", IntentFAQGeneral},
		{"I need to cancel my appointment", IntentReschedule},
		{"What services do you have?", IntentServices},
		{"do you do lip filler", IntentServices},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := c.Classify(tt.input)
			assert.Equal(t, tt.want, res.Intent)
			assert.GreaterOrEqual(t, res.Confidence, AcceptThreshold)
			assert.LessOrEqual(t, res.Confidence, 1.0)
			assert.False(t, res.UseAI)
			assert.NotEmpty(t, res.Response)
		})
	}
}

func TestClassify_Gibberish(t *testing.T) {
	c := newTestClassifier()

	for _, input := range []string{"asdkjhasd", "", "   ", "qwerty zzz"} {
		res := c.Classify(input)
		assert.Equal(t, IntentUnknown, res.Intent, input)
		assert.True(t, res.UseAI, input)
		assert.True(t, res.RequiresClarification, input)
		assert.Less(t, res.Confidence, AcceptThreshold, input)
		assert.NotEmpty(t, res.Chips, input)
	}
}

func TestClassify_SafetyShortCircuits(t *testing.T) {
	c := newTestClassifier()

	res := c.Classify("I want to book Botox but I'm pregnant")
	assert.Equal(t, IntentSafety, res.Intent)
	assert.Equal(t, 1.0, res.Confidence)
	assert.True(t, res.SafetyFlag)
	assert.Contains(t, res.FlagIDs, "pregnancy")
	assert.Contains(t, res.Chips, "Book a consult")
}

func TestClassify_SingleMatchClearsThreshold(t *testing.T) {
	for _, entry := range intentTable {
		require.Less(t, len(entry.patterns), 20, "pattern list for %s too long", entry.intent)
		score := scorePatterns(entry.patterns[0], entry.patterns)
		assert.GreaterOrEqual(t, score, AcceptThreshold, entry.intent)
	}
}

func TestClassify_TieGoesToFirstDeclared(t *testing.T) {
	c := &Classifier{
		screener: safety.NewScreener(logging.New("error")),
		table: []intentPatterns{
			{IntentPricing, []string{"alpha"}},
			{IntentServices, []string{"alpha"}},
		},
	}
	res := c.Classify("alpha")
	assert.Equal(t, IntentPricing, res.Intent)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestClassify_Deterministic(t *testing.T) {
	c := newTestClassifier()
	first := c.Classify("How much is lip filler?")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify("How much is lip filler?"))
	}
}

func TestExtractEntities(t *testing.T) {
	e := ExtractEntities("Book a Botox slot for Thursday, my forehead lines are back")
	assert.Equal(t, "Botox", e.Service)
	assert.Equal(t, "thursday", e.Timeframe)
	assert.Equal(t, "forehead lines", e.Concern)

	e = ExtractEntities("how much is lip filler")
	assert.Equal(t, "Fillers", e.Service)
	assert.Empty(t, e.Timeframe)

	assert.Equal(t, Entities{}, ExtractEntities(""))
}

func TestRender_InterpolatesService(t *testing.T) {
	res := Render(IntentPricing, Entities{Service: "Fillers"})
	assert.Contains(t, res.Response, "Fillers is $650 per syringe")
	assert.Equal(t, []string{"Book Fillers", "Ask a question", "Main menu"}, res.Chips)

	res = Render(IntentBookBotox, Entities{})
	assert.Contains(t, res.Response, "Botox")
	assert.Equal(t, []string{"Yes", "No"}, res.Chips)

	res = Render(Intent("nonsense"), Entities{})
	assert.Equal(t, IntentUnknown, res.Intent)
	assert.LessOrEqual(t, len(res.Chips), MaxChips)
}
