package proximity

import (
	"sort"

	"nearby/internal/app/geo"
	"nearby/internal/app/user"
)

// Engine computes radius-filtered nearby lists by brute force over the registry.
// One call is O(n); a full broadcast round is O(n^2), which bounds the practical
// population of a single process to a few hundred concurrent users.
type Engine struct {
	registry *Registry
	radiusKm float64
}

// NewEngine returns an engine reading from registry with the given radius in kilometres.
func NewEngine(registry *Registry, radiusKm float64) *Engine {
	return &Engine{registry: registry, radiusKm: radiusKm}
}

// RadiusKm returns the configured radius.
func (e *Engine) RadiusKm() float64 {
	return e.radiusKm
}

// Nearby returns every registered user within the radius of target, excluding target's
// own id and any id in exclude. Results are ordered by distance, then id.
func (e *Engine) Nearby(target user.Record, exclude map[string]struct{}) []NearbyUser {
	return e.nearbyFrom(e.registry.Entries(), target, exclude)
}

// nearbyFrom is Nearby over an already taken snapshot, so one broadcast round
// computes every list against the same registry state.
func (e *Engine) nearbyFrom(entries []Entry, target user.Record, exclude map[string]struct{}) []NearbyUser {
	nearby := make([]NearbyUser, 0)

	for _, other := range entries {
		if other.Record.ID == target.ID {
			continue
		}
		if _, skip := exclude[other.Record.ID]; skip {
			continue
		}

		km := geo.DistanceKm(target.Lat, target.Lng, other.Record.Lat, other.Record.Lng)
		if km > e.radiusKm {
			continue
		}

		nearby = append(nearby, NearbyUser{
			UserID:         other.Record.ID,
			Lat:            other.Record.Lat,
			Lng:            other.Record.Lng,
			DistanceMeters: geo.Meters(km),
		})
	}

	sort.Slice(nearby, func(i, j int) bool {
		if nearby[i].DistanceMeters != nearby[j].DistanceMeters {
			return nearby[i].DistanceMeters < nearby[j].DistanceMeters
		}
		return nearby[i].UserID < nearby[j].UserID
	})

	return nearby
}

// roster converts a snapshot into the allUsers list, ordered by id.
func roster(entries []Entry) []RosterUser {
	all := make([]RosterUser, 0, len(entries))
	for _, e := range entries {
		all = append(all, RosterUser{
			UserID: e.Record.ID,
			Lat:    e.Record.Lat,
			Lng:    e.Record.Lng,
		})
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].UserID < all[j].UserID
	})

	return all
}
