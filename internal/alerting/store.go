package alerting

import (
	"sync"

	"WardMonitorAPI/internal/models"
)

// SubjectAlertStore caches the latest alert set per subject, driving the
// dashboard badges. Each update replaces the previous set wholesale, so
// a vital that returned to range drops out instead of ghosting. The
// store is a pure cache of derived state: it is not persisted, and after
// a restart it refills as readings arrive.
type SubjectAlertStore struct {
	mu     sync.RWMutex
	active map[int][]models.Alert
}

func NewSubjectAlertStore() *SubjectAlertStore {
	return &SubjectAlertStore{
		active: make(map[int][]models.Alert),
	}
}

// Update replaces the subject's alert set with the newly evaluated one.
// An empty or nil set clears the subject entirely (everything is back in
// range). Callers skip Update for readings that carried no vital fields
// at all, so an empty camera frame cannot wipe live alerts.
func (s *SubjectAlertStore) Update(subjectID int, alerts []models.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(alerts) == 0 {
		delete(s.active, subjectID)
		return
	}

	set := make([]models.Alert, len(alerts))
	copy(set, alerts)
	s.active[subjectID] = set
}

// Get returns a copy of the subject's current alert set.
func (s *SubjectAlertStore) Get(subjectID int) []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alerts, ok := s.active[subjectID]
	if !ok {
		return nil
	}

	out := make([]models.Alert, len(alerts))
	copy(out, alerts)
	return out
}

// Clear empties the subject's set. This models a viewer dismissing the
// alerts; the next out-of-range reading recreates them.
func (s *SubjectAlertStore) Clear(subjectID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, subjectID)
}

// All returns a copy of every subject's current alert set.
func (s *SubjectAlertStore) All() map[int][]models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int][]models.Alert, len(s.active))
	for subjectID, alerts := range s.active {
		set := make([]models.Alert, len(alerts))
		copy(set, alerts)
		out[subjectID] = set
	}
	return out
}
