package requestlog

// NearMissInfo is a log-friendly summary of a near-miss match.
type NearMissInfo struct {
	DefinitionID   string `json:"definitionId"`
	DefinitionName string `json:"definitionName,omitempty"`

	// Satisfied of Conditions matcher conditions held.
	Satisfied  int `json:"satisfied"`
	Conditions int `json:"conditions"`

	// MatchPercentage is the weighted score as a percentage (0-100).
	MatchPercentage int `json:"matchPercentage"`

	// Reason explains why it did not match, e.g. "header X-Key missing".
	Reason string `json:"reason"`
}
