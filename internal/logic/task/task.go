package task

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Task is one street edge to audit.
type Task struct {
	streetEdgeID int
	regionID     int

	mu        sync.RWMutex
	geometry  orb.LineString // lng/lat, in travel order
	completed bool
}

// New creates a task. The line needs at least two points.
func New(streetEdgeID, regionID int, line orb.LineString, completed bool) (*Task, error) {
	if len(line) < 2 {
		return nil, fmt.Errorf("street edge %d: line has %d points, want at least 2", streetEdgeID, len(line))
	}
	return &Task{
		streetEdgeID: streetEdgeID,
		regionID:     regionID,
		geometry:     line.Clone(),
		completed:    completed,
	}, nil
}

func (t *Task) StreetEdgeID() int { return t.streetEdgeID }
func (t *Task) RegionID() int     { return t.regionID }

// Geometry returns a copy of the street edge line in travel order.
func (t *Task) Geometry() orb.LineString {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.geometry.Clone()
}

// Length returns the street edge length in kilometers.
func (t *Task) Length() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return geo.LengthHaversine(t.geometry) / 1000.0
}

// FirstCoordinate returns the start of the street edge (lng/lat).
func (t *Task) FirstCoordinate() orb.Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.geometry[0]
}

// LastCoordinate returns the end of the street edge (lng/lat).
func (t *Task) LastCoordinate() orb.Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.geometry[len(t.geometry)-1]
}

// ReverseIfCloserToEnd orients the edge so it starts at the endpoint nearest to (lat, lng).
// It reports whether the edge was reversed.
func (t *Task) ReverseIfCloserToEnd(lat, lng float64) bool {
	p := orb.Point{lng, lat}
	t.mu.Lock()
	defer t.mu.Unlock()
	toFirst := geo.DistanceHaversine(p, t.geometry[0])
	toLast := geo.DistanceHaversine(p, t.geometry[len(t.geometry)-1])
	if toLast < toFirst {
		t.geometry.Reverse()
		return true
	}
	return false
}

// IsConnectedTo reports whether any endpoint of t lies within thresholdKm of an endpoint of other.
func (t *Task) IsConnectedTo(other *Task, thresholdKm float64) bool {
	a := []orb.Point{t.FirstCoordinate(), t.LastCoordinate()}
	b := []orb.Point{other.FirstCoordinate(), other.LastCoordinate()}
	for _, p := range a {
		for _, q := range b {
			if geo.DistanceHaversine(p, q)/1000.0 < thresholdKm {
				return true
			}
		}
	}
	return false
}

// Complete marks the task audited.
func (t *Task) Complete() {
	t.mu.Lock()
	t.completed = true
	t.mu.Unlock()
}

func (t *Task) IsCompleted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.completed
}
