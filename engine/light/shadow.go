package light

// ShadowState describes the shadow configuration active for a pass.
// NodeID identifies the shadow node (0 when shadows are off); lights in Casters
// are shaded through shadow maps and stay out of the clustered light list.
type ShadowState struct {
	NodeID  uint64
	Casters []Light
}

// Active reports whether a shadow node is bound.
func (s ShadowState) Active() bool {
	return s.NodeID != 0
}

// HideCasters marks every caster invisible and returns a function restoring their previous visibility.
//
// Returns:
//   - func(): restores the casters' visibility flags
func (s ShadowState) HideCasters() func() {
	prev := make([]bool, len(s.Casters))
	for i, l := range s.Casters {
		prev[i] = l.Visible()
		l.SetVisible(false)
	}
	return func() {
		for i, l := range s.Casters {
			l.SetVisible(prev[i])
		}
	}
}
