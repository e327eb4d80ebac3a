package incident

import "sync"

// Store holds the current set of incidents shown by the dashboard.
// It performs no I/O; callers fetch from the backend and hand results in.
type Store struct {
	mu        sync.RWMutex
	incidents []Incident
}

// NewStore returns an empty incident store.
func NewStore() *Store {
	return &Store{}
}

// ReplaceAll sets the full incident collection, keeping the backend's order.
func (s *Store) ReplaceAll(list []Incident) {
	next := make([]Incident, len(list))
	copy(next, list)

	s.mu.Lock()
	s.incidents = next
	s.mu.Unlock()
}

// PrependMany inserts newly analyzed incidents at the front, in the given order.
// Existing entries keep their relative order.
func (s *Store) PrependMany(newIncidents []Incident) {
	if len(newIncidents) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]Incident, 0, len(newIncidents)+len(s.incidents))
	next = append(next, newIncidents...)
	next = append(next, s.incidents...)
	s.incidents = next
}

// UpdateStatus sets the status of the incident with the given id.
// It returns the previous status and whether a match was found; a missing id is a no-op.
func (s *Store) UpdateStatus(id string, status Status) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		prev  Status
		found bool
	)
	for i := range s.incidents {
		if s.incidents[i].IncidentID != id {
			continue
		}
		if !found {
			prev = s.incidents[i].Status
			found = true
		}
		s.incidents[i].Status = status
	}
	return prev, found
}

// Get returns a copy of the incident with the given id.
func (s *Store) Get(id string) (Incident, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inc := range s.incidents {
		if inc.IncidentID == id {
			return inc, true
		}
	}
	return Incident{}, false
}

// All returns a copy of the collection in display order.
func (s *Store) All() []Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Incident, len(s.incidents))
	copy(out, s.incidents)
	return out
}

// Len returns the number of incidents held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.incidents)
}
