// Package navigation implements preview pane drill-down: a stack of
// previously displayed links and a controller that fetches, renders and
// sequences preview loads per session.
package navigation

// Stack is an ordered list of previously visited links, most recent last.
// The back control is shown exactly when the stack is not empty.
type Stack struct {
	entries []string
}

// NewStack seeds a stack with initial entries, oldest first.
func NewStack(initial ...string) *Stack {
	s := &Stack{}
	for _, entry := range initial {
		if entry != "" {
			s.entries = append(s.entries, entry)
		}
	}
	return s
}

// Push records a link. Empty links are ignored.
func (s *Stack) Push(link string) {
	if link == "" {
		return
	}
	s.entries = append(s.entries, link)
}

// Pop removes and returns the most recent link.
func (s *Stack) Pop() (string, bool) {
	if len(s.entries) == 0 {
		return "", false
	}
	last := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return last, true
}

// Peek returns the most recent link without removing it.
func (s *Stack) Peek() (string, bool) {
	if len(s.entries) == 0 {
		return "", false
	}
	return s.entries[len(s.entries)-1], true
}

func (s *Stack) Reset() {
	s.entries = nil
}

func (s *Stack) Len() int {
	return len(s.entries)
}

// BackVisible reports whether the back control should be shown.
func (s *Stack) BackVisible() bool {
	return len(s.entries) > 0
}

// Entries returns a copy of the stack, oldest first.
func (s *Stack) Entries() []string {
	return append([]string{}, s.entries...)
}
