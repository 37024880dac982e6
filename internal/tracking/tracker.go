package tracking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ises-energia/scrc-backend/pkg/config"
	pkgerrors "github.com/ises-energia/scrc-backend/pkg/errors"
)

// Position is one technician GPS report.
type Position struct {
	TechnicianID string
	BrigadeID    *uuid.UUID
	Latitude     float64
	Longitude    float64
}

// Presence is the last known state of one technician.
type Presence struct {
	TechnicianID string     `json:"technicianId"`
	BrigadeID    *uuid.UUID `json:"brigadeId,omitempty"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	LastSeen     time.Time  `json:"lastSeen"`
	Online       bool       `json:"online"`
}

// Tracker keeps technician positions in memory. It is best effort and
// eventually consistent; it has no transactional relationship with order
// assignment.
type Tracker struct {
	mu        sync.RWMutex
	positions map[string]Presence
	window    time.Duration
	now       func() time.Time
}

func NewTracker(cfg config.TrackingConfig, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	window := cfg.OnlineWindow
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &Tracker{
		positions: make(map[string]Presence),
		window:    window,
		now:       now,
	}
}

// Report records the latest position for a technician, replacing any prior
// report.
func (t *Tracker) Report(_ context.Context, pos Position) error {
	if pos.TechnicianID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "technician id is required")
	}
	if pos.Latitude < -90 || pos.Latitude > 90 || pos.Longitude < -180 || pos.Longitude > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.positions[pos.TechnicianID] = Presence{
		TechnicianID: pos.TechnicianID,
		BrigadeID:    pos.BrigadeID,
		Latitude:     pos.Latitude,
		Longitude:    pos.Longitude,
		LastSeen:     t.now(),
	}
	return nil
}

// Technicians lists every known technician with their online status. A
// technician is online when the last report is inside the staleness window.
func (t *Tracker) Technicians(_ context.Context) []Presence {
	now := t.now()

	t.mu.RLock()
	defer t.mu.RUnlock()
	list := make([]Presence, 0, len(t.positions))
	for _, presence := range t.positions {
		presence.Online = now.Sub(presence.LastSeen) <= t.window
		list = append(list, presence)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].TechnicianID < list[j].TechnicianID
	})
	return list
}

// Prune drops reports older than the given age so the map cannot grow
// without bound across shifts.
func (t *Tracker) Prune(maxAge time.Duration) int {
	cutoff := t.now().Add(-maxAge)

	t.mu.Lock()
	defer t.mu.Unlock()
	dropped := 0
	for id, presence := range t.positions {
		if presence.LastSeen.Before(cutoff) {
			delete(t.positions, id)
			dropped++
		}
	}
	return dropped
}
