package analysis

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Outcome tags how a structured task produced its value.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeRepaired   Outcome = "repaired"
	OutcomeParseError Outcome = "parse_error"
	OutcomeCallError  Outcome = "call_error"
)

// Result accompanies every structured value. Anything other than ok or
// repaired means the value is a fallback default.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

func (r Result) Fallback() bool {
	return r.Outcome == OutcomeParseError || r.Outcome == OutcomeCallError
}

var errNoJSON = errors.New("no JSON object in model output")

var (
	bareKey       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// Decode extracts the JSON object from raw model output into v. It strips
// markdown fences and surrounding prose, tries a strict decode, then repairs
// unquoted keys and trailing commas and tries once more.
func Decode(raw string, v any) (Outcome, error) {
	body, err := extractObject(stripFences(raw))
	if err != nil {
		return OutcomeParseError, err
	}
	if err := json.Unmarshal([]byte(body), v); err == nil {
		return OutcomeOK, nil
	}

	repaired := bareKey.ReplaceAllString(body, `$1"$2":`)
	repaired = trailingComma.ReplaceAllString(repaired, `$1`)
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return OutcomeParseError, err
	}
	return OutcomeRepaired, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	rest := s[start+3:]
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	rest = strings.TrimPrefix(rest, "json")
	rest = strings.TrimPrefix(rest, "JSON")
	return strings.TrimSpace(rest)
}

func extractObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", errNoJSON
	}
	return s[start : end+1], nil
}
