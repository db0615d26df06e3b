package listings

import (
	"strings"
	"sync"

	"github.com/esotraders/exchange-bot/internal/models"
)

// Store holds the active listings in insertion order. Discord handlers run
// on their own goroutines, so every access takes the lock.
type Store struct {
	mu       sync.RWMutex
	listings []models.Listing
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add appends a listing.
func (s *Store) Add(l models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = append(s.listings, l)
}

// RemoveByTrader drops every listing whose trader matches name, ignoring
// case, and returns how many were removed.
func (s *Store) RemoveByTrader(name string) int {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.listings[:0]
	removed := 0
	for _, l := range s.listings {
		if strings.EqualFold(l.Trader, name) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	// Clear the tail so dropped listings are not retained by the backing array.
	for i := len(kept); i < len(s.listings); i++ {
		s.listings[i] = models.Listing{}
	}
	s.listings = kept
	return removed
}

// List returns a copy of all listings in insertion order.
func (s *Store) List() []models.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Listing, len(s.listings))
	copy(out, s.listings)
	return out
}

// Len returns the number of active listings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}
