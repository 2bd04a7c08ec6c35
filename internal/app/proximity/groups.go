package proximity

import "sync"

// Groups tracks the two presence subscriber sets used for join announcements.
// Membership is independent of the registry and of each other.
type Groups struct {
	mu           sync.RWMutex
	homeWatchers map[Conn]struct{}
	participants map[Conn]struct{}
}

// NewGroups returns empty presence groups.
func NewGroups() *Groups {
	return &Groups{
		homeWatchers: make(map[Conn]struct{}),
		participants: make(map[Conn]struct{}),
	}
}

// AddHomeWatcher marks c as waiting on the home screen.
func (g *Groups) AddHomeWatcher(c Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.homeWatchers[c] = struct{}{}
}

// AddParticipant marks c as having joined the nearby feature.
func (g *Groups) AddParticipant(c Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.participants[c] = struct{}{}
}

// Remove drops c from both sets.
func (g *Groups) Remove(c Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.homeWatchers, c)
	delete(g.participants, c)
}

// HasParticipants reports whether any connection has joined.
func (g *Groups) HasParticipants() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.participants) > 0
}

// HomeWatchers returns the current home watchers.
func (g *Groups) HomeWatchers() []Conn {
	g.mu.RLock()
	defer g.mu.RUnlock()

	watchers := make([]Conn, 0, len(g.homeWatchers))
	for c := range g.homeWatchers {
		watchers = append(watchers, c)
	}
	return watchers
}

// Counts returns the sizes of the home watcher and participant sets.
func (g *Groups) Counts() (homeWatchers, participants int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.homeWatchers), len(g.participants)
}
