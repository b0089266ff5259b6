package analysis

import "fmt"

const (
	systemJSON = "You review legal contracts. Reply with a single JSON object in exactly the requested shape and nothing else."
	systemText = "You review and draft legal contracts. Answer plainly and only from the material provided."
)

func scorePrompt(text string) string {
	return fmt.Sprintf(`Score this contract from 0 to 100 overall and in each category.
Shape: {"overall_score": int, "score_breakdown": {"clarity_and_language": int, "comprehensiveness": int, "risk_protection": int, "balanced_rights": int, "compliance": int}, "summary": string}

Contract:
%s`, text)
}

func risksPrompt(text string) string {
	return fmt.Sprintf(`List up to five risks and five opportunities in this contract, keyed by a short snake_case name.
Shape: {"risks": {name: {"level": "High|Medium|Low", "description": string, "potential_impact": string, "mitigation_suggestions": string}}, "opportunities": {name: {"level": "High|Medium|Low", "description": string, "potential_value": string, "action_items": string}}}

Contract:
%s`, text)
}

func clausesPrompt(text string) string {
	return fmt.Sprintf(`Identify the five to seven most important clauses in this contract.
Shape: {"key_clauses": [{"clause_type": string, "clause_extract": string, "explanation": string, "concerns": string}]}

Contract:
%s`, text)
}

func clauseQueryPrompt(text, query string) string {
	return fmt.Sprintf(`Explain this aspect of the contract: %q
Shape: {"found": bool, "clause_text": string, "explanation": string, "implications": string, "standard_practice": string, "recommendations": string}

Contract:
%s`, query, text)
}

func keyTermsPrompt(text string) string {
	return fmt.Sprintf(`Extract up to fifteen defined or important terms from this contract.
Shape: {"key_terms": [{"term": string, "definition": string, "explanation": string, "importance": string}]}

Contract:
%s`, text)
}

func summaryPrompt(text string) string {
	return fmt.Sprintf(`Summarize this contract.
Shape: {"contract_type": string, "parties": [string], "purpose": string, "key_provisions": [string], "important_dates": [{"event": string, "date": string}], "notable_aspects": string, "summary": string}

Contract:
%s`, text)
}

func askPrompt(text, question string) string {
	return fmt.Sprintf(`Question: %s

Answer only from the contract below. Say so if the contract does not answer it, and cite the relevant section when you can.

Contract:
%s`, question, text)
}

func generatePrompt(contractType, details string) string {
	return fmt.Sprintf(`Draft a professional %s contract with clear numbered sections: definitions, rights and obligations, payment, term and termination, and any other sections this type of agreement needs.

Details:
%s`, contractType, details)
}
