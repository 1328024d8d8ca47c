package migration

import (
	"encoding/json"
	"fmt"

	"github.com/desertthunder/tubetrack/internal/kv"
	"github.com/desertthunder/tubetrack/internal/shared"
)

// Marker is the persisted migration state for one user.
type Marker string

const (
	MarkerAbsent     Marker = "absent"
	MarkerInProgress Marker = "in_progress"
	MarkerCompleted  Marker = "completed"
)

// Markers reads and writes markers under "migration_<userId>".
type Markers struct {
	kv kv.Store
}

// NewMarkers creates [Markers] over store.
func NewMarkers(store kv.Store) *Markers {
	return &Markers{kv: store}
}

// Get returns the marker for userID. Unknown values are reported as [shared.LocalReadError].
func (m *Markers) Get(userID string) (Marker, error) {
	raw, ok, err := m.kv.Get(kv.MigrationKey(userID))
	if err != nil {
		return MarkerAbsent, &shared.LocalReadError{Key: kv.MigrationKey(userID), Err: err}
	}
	if !ok {
		return MarkerAbsent, nil
	}

	var marker Marker
	if err := json.Unmarshal([]byte(raw), &marker); err != nil {
		return MarkerAbsent, &shared.LocalReadError{Key: kv.MigrationKey(userID), Err: err}
	}
	switch marker {
	case MarkerInProgress, MarkerCompleted:
		return marker, nil
	default:
		return MarkerAbsent, &shared.LocalReadError{Key: kv.MigrationKey(userID), Err: fmt.Errorf("unknown marker %q", marker)}
	}
}

// Set writes marker; [MarkerAbsent] removes the key.
func (m *Markers) Set(userID string, marker Marker) error {
	if marker == MarkerAbsent {
		return m.Clear(userID)
	}
	data, err := json.Marshal(marker)
	if err != nil {
		return err
	}
	if err := m.kv.Set(kv.MigrationKey(userID), string(data)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLocalWrite, err)
	}
	return nil
}

// Clear removes the marker for userID.
func (m *Markers) Clear(userID string) error {
	if err := m.kv.Remove(kv.MigrationKey(userID)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLocalWrite, err)
	}
	return nil
}
