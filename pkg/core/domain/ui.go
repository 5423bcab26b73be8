package domain

// UIState is the panel state that is not persisted.
type UIState struct {
	Expanded map[string]bool
	Selected map[string]bool
	Search   string
}

func NewUIState() UIState {
	return UIState{
		Expanded: map[string]bool{},
		Selected: map[string]bool{},
	}
}

// Clone copies the maps so callers can't mutate controller state.
func (s UIState) Clone() UIState {
	out := UIState{
		Expanded: make(map[string]bool, len(s.Expanded)),
		Selected: make(map[string]bool, len(s.Selected)),
		Search:   s.Search,
	}
	for k, v := range s.Expanded {
		out.Expanded[k] = v
	}
	for k, v := range s.Selected {
		out.Selected[k] = v
	}
	return out
}
