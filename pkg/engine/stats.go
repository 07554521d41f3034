package engine

// State is the consumption state of a definition.
type State int

const (
	StateFresh State = iota
	StateConsumed
	// StateExhausted definitions have used up their Times and are skipped
	// by Resolve. They stay in the pool for diagnostics.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateConsumed:
		return "consumed"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DefinitionStats is a snapshot of one definition's consumption.
type DefinitionStats struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Provider    string `json:"provider"`
	Index       int    `json:"index"`
	Description string `json:"description"`
	Times       int    `json:"times"`
	Consumed    int    `json:"consumed"`
	State       State  `json:"state"`
}

// Stats returns a snapshot of every definition in registration order.
func (p *Pool) Stats() []DefinitionStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]DefinitionStats, len(p.entries))
	for i, e := range p.entries {
		state := StateFresh
		switch {
		case e.exhausted():
			state = StateExhausted
		case e.consumed > 0:
			state = StateConsumed
		}
		out[i] = DefinitionStats{
			ID:          e.def.ID,
			Name:        e.def.Name,
			Provider:    e.provider,
			Index:       e.index,
			Description: e.def.Describe(),
			Times:       e.def.Times,
			Consumed:    e.consumed,
			State:       state,
		}
	}
	return out
}
