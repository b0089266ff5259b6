package model

// UsageDay is one persisted daily counter.
type UsageDay struct {
	Day    string `json:"day"`
	Action string `json:"action"`
	Count  int    `json:"count"`
}
