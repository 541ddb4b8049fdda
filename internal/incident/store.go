package incident

import (
	"errors"
	"fmt"
	"sync"

	"incidentsim/pkg/models"
)

// ErrOutOfSequence is returned when an appended incident does not carry the
// next id.
var ErrOutOfSequence = errors.New("incident id out of sequence")

// Store is the append-only incident history of one session. Ids form the
// gapless sequence 1..Size(). Reads return snapshots, so they never observe a
// half-finished append.
type Store struct {
	mu        sync.RWMutex
	incidents []models.Incident
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// AppendNext assigns the next id and appends the incident returned by build.
// build runs under the store lock; keep it free of blocking calls.
func (s *Store) AppendNext(build func(id int64) models.Incident) models.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := int64(len(s.incidents)) + 1
	inc := build(id)
	inc.ID = id
	s.incidents = append(s.incidents, inc)
	return inc
}

// Append adds an incident that already carries an id, e.g. when replaying a
// journal. The id must equal Size()+1.
func (s *Store) Append(inc models.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := int64(len(s.incidents)) + 1
	if inc.ID != want {
		return fmt.Errorf("%w: expected %d, got %d", ErrOutOfSequence, want, inc.ID)
	}
	s.incidents = append(s.incidents, inc)
	return nil
}

// All returns a copy of the history in id order.
func (s *Store) All() []models.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Incident, len(s.incidents))
	copy(out, s.incidents)
	return out
}

// Recent returns a copy of the last n incidents in id order.
func (s *Store) Recent(n int) []models.Incident {
	if n <= 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.incidents) - n
	if start < 0 {
		start = 0
	}
	out := make([]models.Incident, len(s.incidents)-start)
	copy(out, s.incidents[start:])
	return out
}

// Size returns the number of stored incidents.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.incidents)
}
