// internal/room/room_store.go
package room

import (
	"sync"

	"github.com/google/uuid"
)

// Store tracks every active room in memory, keyed by game id.
type Store struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*Room
}

func NewStore() *Store {
	return &Store{rooms: make(map[uuid.UUID]*Room)}
}

func (s *Store) Add(r *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
}

func (s *Store) Get(id uuid.UUID) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

// Delete closes the room and forgets it. Safe to call for ids that are
// already gone.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	r, ok := s.rooms[id]
	delete(s.rooms, id)
	s.mu.Unlock()
	if ok {
		r.Close()
	}
}
