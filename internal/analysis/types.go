package analysis

type ScoreBreakdown struct {
	ClarityAndLanguage int `json:"clarity_and_language"`
	Comprehensiveness  int `json:"comprehensiveness"`
	RiskProtection     int `json:"risk_protection"`
	BalancedRights     int `json:"balanced_rights"`
	Compliance         int `json:"compliance"`
}

type Score struct {
	OverallScore int            `json:"overall_score"`
	Breakdown    ScoreBreakdown `json:"score_breakdown"`
	Summary      string         `json:"summary"`
}

type Risk struct {
	Level                 string `json:"level"`
	Description           string `json:"description"`
	PotentialImpact       string `json:"potential_impact"`
	MitigationSuggestions string `json:"mitigation_suggestions"`
}

type Opportunity struct {
	Level          string `json:"level"`
	Description    string `json:"description"`
	PotentialValue string `json:"potential_value"`
	ActionItems    string `json:"action_items"`
}

type RisksAndOpportunities struct {
	Risks         map[string]Risk        `json:"risks"`
	Opportunities map[string]Opportunity `json:"opportunities"`
}

type Clause struct {
	ClauseType    string `json:"clause_type"`
	ClauseExtract string `json:"clause_extract"`
	Explanation   string `json:"explanation"`
	Concerns      string `json:"concerns"`
}

type Clauses struct {
	KeyClauses []Clause `json:"key_clauses"`
}

type ClauseAnswer struct {
	Found            bool   `json:"found"`
	ClauseText       string `json:"clause_text"`
	Explanation      string `json:"explanation"`
	Implications     string `json:"implications"`
	StandardPractice string `json:"standard_practice"`
	Recommendations  string `json:"recommendations"`
}

type KeyTerm struct {
	Term        string `json:"term"`
	Definition  string `json:"definition"`
	Explanation string `json:"explanation"`
	Importance  string `json:"importance"`
}

type KeyTerms struct {
	KeyTerms []KeyTerm `json:"key_terms"`
}

type ImportantDate struct {
	Event string `json:"event"`
	Date  string `json:"date"`
}

type Summary struct {
	ContractType   string          `json:"contract_type"`
	Parties        []string        `json:"parties"`
	Purpose        string          `json:"purpose"`
	KeyProvisions  []string        `json:"key_provisions"`
	ImportantDates []ImportantDate `json:"important_dates"`
	NotableAspects string          `json:"notable_aspects"`
	Summary        string          `json:"summary"`
}

// Full is the combined output of a complete contract analysis.
type Full struct {
	Score    Score                 `json:"score"`
	Risks    RisksAndOpportunities `json:"risks_opportunities"`
	Clauses  Clauses               `json:"clauses"`
	KeyTerms KeyTerms              `json:"key_terms"`
	Summary  Summary               `json:"summary"`
	Results  map[string]Result     `json:"results"`
}

func fallbackScore() Score {
	return Score{
		OverallScore: 50,
		Breakdown: ScoreBreakdown{
			ClarityAndLanguage: 50,
			Comprehensiveness:  50,
			RiskProtection:     50,
			BalancedRights:     50,
			Compliance:         50,
		},
		Summary: "Unable to analyze contract fully. Please try again or contact support if the issue persists.",
	}
}

func fallbackRisks() RisksAndOpportunities {
	return RisksAndOpportunities{
		Risks: map[string]Risk{
			"general_risk": {
				Level:                 "Medium",
				Description:           "Unable to fully analyze risks. Please try again.",
				PotentialImpact:       "Unknown",
				MitigationSuggestions: "Review the contract manually.",
			},
		},
		Opportunities: map[string]Opportunity{
			"general_opportunity": {
				Level:          "Medium",
				Description:    "Unable to fully analyze opportunities. Please try again.",
				PotentialValue: "Unknown",
				ActionItems:    "Review the contract manually.",
			},
		},
	}
}

func fallbackClauses() Clauses {
	return Clauses{KeyClauses: []Clause{{
		ClauseType:  "Error",
		Explanation: "Unable to analyze clauses. Please try again or contact support.",
	}}}
}

func fallbackClauseAnswer() ClauseAnswer {
	return ClauseAnswer{
		Explanation: "Unable to analyze the specific clause. Please try again or rephrase your query.",
	}
}

func fallbackKeyTerms() KeyTerms {
	return KeyTerms{KeyTerms: []KeyTerm{{
		Term:        "Error",
		Explanation: "Unable to extract key terms. Please try again or contact support.",
	}}}
}

func fallbackSummary() Summary {
	return Summary{
		ContractType:   "Unknown",
		Parties:        []string{"Unknown"},
		Purpose:        "Unable to determine contract purpose.",
		KeyProvisions:  []string{"Unable to extract key provisions."},
		ImportantDates: []ImportantDate{},
		NotableAspects: "Unable to identify notable aspects.",
		Summary:        "Unable to generate a summary for this contract. Please try again or contact support if the issue persists.",
	}
}

const (
	fallbackAnswer   = "I'm sorry, but I encountered an error while processing your question. Please try again or rephrase your question."
	fallbackContract = "Failed to generate contract. Please try again or contact support."
)
