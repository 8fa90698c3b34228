package domain

import "sync"

// ExecutionState is the per-turn lifecycle tag of a pipeline component.
type ExecutionState string

const (
	// StateNotRun means the component's start condition rejected it, or it
	// has not been reached yet this turn.
	StateNotRun ExecutionState = "NOT_RUN"
	// StateRunning means the component body is currently executing.
	StateRunning ExecutionState = "RUNNING"
	// StateFinished means the component completed without failure.
	StateFinished ExecutionState = "FINISHED"
	// StateFailed means the component body failed or timed out.
	StateFailed ExecutionState = "FAILED"
)

// StateStore maps component paths to their execution state for the current
// turn. It lives in the context's framework data and is cleared after every
// turn. Safe for concurrent use.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]ExecutionState
}

// NewStateStore creates an empty state store.
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]ExecutionState)}
}

// Get returns the recorded state for a component path.
// Paths without a record report StateNotRun.
func (s *StateStore) Get(path string) ExecutionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[path]; ok {
		return st
	}
	return StateNotRun
}

// Set records the state for a component path.
func (s *StateStore) Set(path string, state ExecutionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[path] = state
}

// Snapshot returns a copy of all recorded states. Mutating the returned map
// does not affect the store.
func (s *StateStore) Snapshot() map[string]ExecutionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]ExecutionState, len(s.states))
	for path, st := range s.states {
		out[path] = st
	}
	return out
}

// Len returns the number of recorded states.
func (s *StateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// Clear drops every recorded state. Called by the pipeline at turn end.
func (s *StateStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string]ExecutionState)
}
