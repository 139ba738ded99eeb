package render

// Destroyer is implemented by every resource wrapper.
type Destroyer interface {
	Destroy()
}

// Scope owns resources and destroys them in reverse order of acquisition.
// The zero value is ready to use.
type Scope struct {
	owned []Destroyer
}

// Own records d in s and returns it, so creation and ownership read as one
// step: view := Own(&scope, view).
func Own[T Destroyer](s *Scope, d T) T {
	s.owned = append(s.owned, d)
	return d
}

func (s *Scope) Len() int {
	return len(s.owned)
}

func (s *Scope) Destroy() {
	for i := len(s.owned) - 1; i >= 0; i-- {
		s.owned[i].Destroy()
	}
	s.owned = nil
}

// Move hands everything s owns to a new scope and leaves s empty.
func (s *Scope) Move() Scope {
	moved := Scope{owned: s.owned}
	s.owned = nil
	return moved
}
