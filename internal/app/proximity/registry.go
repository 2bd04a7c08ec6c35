package proximity

import (
	"math"
	"sync"

	"nearby/internal/app/user"
)

// Entry is a point-in-time copy of one registry row.
type Entry struct {
	Conn   Conn
	Record user.Record

	// Suppressed holds user ids this connection has chosen to hide from its nearby list.
	Suppressed map[string]struct{}
}

type registryEntry struct {
	record     user.Record
	suppressed map[string]struct{}

	// seq orders writes so the latest writer wins id lookups.
	seq uint64
}

// Registry maps each connection to its last reported user record.
// It is the single source of truth for who is online and where.
type Registry struct {
	mu      sync.RWMutex
	entries map[Conn]*registryEntry
	seq     uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[Conn]*registryEntry),
	}
}

func validCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Upsert stores rec as the record for c, replacing any previous one.
// Records with an empty id or a non-finite coordinate are ignored and Upsert returns false.
// Suppressions already recorded for c are kept.
func (r *Registry) Upsert(c Conn, rec user.Record) bool {
	rec.ID = user.NormalizeID(rec.ID)
	if rec.ID == "" || !validCoordinate(rec.Lat) || !validCoordinate(rec.Lng) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++

	if e, ok := r.entries[c]; ok {
		e.record = rec
		e.seq = r.seq
		return true
	}

	r.entries[c] = &registryEntry{record: rec, seq: r.seq}
	return true
}

// Remove deletes the record for c and reports whether one existed.
func (r *Registry) Remove(c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[c]; !ok {
		return false
	}

	delete(r.entries, c)
	return true
}

// Find returns the record for c.
func (r *Registry) Find(c Conn) (user.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[c]
	if !ok {
		return user.Record{}, false
	}
	return e.record, true
}

// FindByUserID returns the connection that most recently reported userID.
// It scans every entry, O(n) in the registry size.
func (r *Registry) FindByUserID(userID string) (Conn, user.Record, bool) {
	userID = user.NormalizeID(userID)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		found Conn
		best  *registryEntry
	)

	for c, e := range r.entries {
		if e.record.ID != userID {
			continue
		}
		if best == nil || e.seq > best.seq {
			found, best = c, e
		}
	}

	if best == nil {
		return nil, user.Record{}, false
	}
	return found, best.record, true
}

// Snapshot returns every stored record.
func (r *Registry) Snapshot() []user.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]user.Record, 0, len(r.entries))
	for _, e := range r.entries {
		records = append(records, e.record)
	}
	return records
}

// Entries returns a copy of every row, suppressions included.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.entries))
	for c, e := range r.entries {
		entries = append(entries, Entry{
			Conn:       c,
			Record:     e.record,
			Suppressed: copySet(e.suppressed),
		})
	}
	return entries
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Suppress hides userID from c's future nearby lists. It is a no-op for unregistered connections.
func (r *Registry) Suppress(c Conn, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[c]
	if !ok {
		return
	}
	if e.suppressed == nil {
		e.suppressed = make(map[string]struct{})
	}
	e.suppressed[user.NormalizeID(userID)] = struct{}{}
}

// ClearSuppressed forgets every suppression recorded for c.
func (r *Registry) ClearSuppressed(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[c]; ok {
		e.suppressed = nil
	}
}

func copySet(src map[string]struct{}) map[string]struct{} {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}
