package dispose

import "sync"

// ActionList is the stable handle over a collector's ordered actions. Several
// collectors may share one list; draining it empties the contents every holder
// sees. It is safe for concurrent use.
type ActionList struct {
	mu      sync.Mutex
	actions []Action
}

// NewActionList returns a list holding a copy of initial. Nil entries are
// dropped.
func NewActionList(initial ...Action) *ActionList {
	l := &ActionList{actions: make([]Action, 0, len(initial))}
	for _, a := range initial {
		if a != nil {
			l.actions = append(l.actions, a)
		}
	}
	return l
}

// Append adds a to the end of the list.
func (l *ActionList) Append(a Action) {
	if a == nil {
		return
	}
	l.mu.Lock()
	l.actions = append(l.actions, a)
	l.mu.Unlock()
}

// Len reports how many actions are pending.
func (l *ActionList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.actions)
}

// drain hands back the current contents in append order and leaves the list
// empty, in one critical section.
func (l *ActionList) drain() []Action {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.actions
	l.actions = nil
	return out
}
