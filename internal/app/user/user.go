/*
Package user contains the identity and position record kept for each connected client.
*/
package user

import "strings"

// Record is the last known identity and position reported on one connection.
// ID is chosen by the client and is not unique across connections.
type Record struct {
	// ID is the caller-supplied user identifier.
	ID string `json:"userId"`

	// Name is the optional display name.
	Name string `json:"userName,omitempty"`

	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Position is a WGS84 coordinate pair.
type Position struct {
	Lat float64
	Lng float64
}

// NormalizeID trims surrounding whitespace from a client-supplied id.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// DisplayName returns the record's name, falling back to its id.
func (r Record) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}
