package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		outcome Outcome
		score   int
	}{
		{"plain", `{"overall_score": 80}`, OutcomeOK, 80},
		{"json fence", "```json\n{\"overall_score\": 71}\n```", OutcomeOK, 71},
		{"bare fence", "```\n{\"overall_score\": 72}\n```", OutcomeOK, 72},
		{"prose around fence", "Here you go:\n```json\n{\"overall_score\": 73}\n```\nHope that helps.", OutcomeOK, 73},
		{"prose no fence", `Result: {"overall_score": 74} done`, OutcomeOK, 74},
		{"bare keys", `{overall_score: 65, summary: "ok"}`, OutcomeRepaired, 65},
		{"trailing comma", `{"overall_score": 66,}`, OutcomeRepaired, 66},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Score
			outcome, err := Decode(tt.raw, &s)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, outcome)
			assert.Equal(t, tt.score, s.OverallScore)
		})
	}
}

func TestDecodeNestedRepair(t *testing.T) {
	raw := "```json\n{risks: {late_payment: {level: \"High\", description: \"No penalty\",},}, opportunities: {}}\n```"
	var ro RisksAndOpportunities
	outcome, err := Decode(raw, &ro)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRepaired, outcome)
	assert.Equal(t, "High", ro.Risks["late_payment"].Level)
}

func TestDecodeFailures(t *testing.T) {
	for _, raw := range []string{"", "no json here", `{"overall_score": }`, "```json\n[1,2,3]\n```"} {
		var s Score
		outcome, err := Decode(raw, &s)
		assert.Error(t, err, "raw %q", raw)
		assert.Equal(t, OutcomeParseError, outcome)
	}
}
