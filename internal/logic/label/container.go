package label

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

// Container holds the labels of a labeling session.
type Container struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*Label
	order []uuid.UUID
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{byID: make(map[uuid.UUID]*Label)}
}

// Add stores a label. Adding the same ID twice replaces the earlier label.
func (c *Container) Add(l *Label) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[l.ID()]; !ok {
		c.order = append(c.order, l.ID())
	}
	c.byID[l.ID()] = l
}

// Get returns the label with the given ID.
func (c *Container) Get(id uuid.UUID) (*Label, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.byID[id]
	return l, ok
}

// Remove marks a label deleted. It stays in the container.
func (c *Container) Remove(id uuid.UUID) bool {
	l, ok := c.Get(id)
	if !ok {
		return false
	}
	l.Remove()
	return true
}

// All returns every label in insertion order, deleted ones included.
func (c *Container) All() []*Label {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Label, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// ForPano returns the non-deleted labels placed on a panorama.
func (c *Container) ForPano(panoID string) []*Label {
	var out []*Label
	for _, l := range c.All() {
		if l.PanoID() == panoID && !l.IsDeleted() {
			out = append(out, l)
		}
	}
	return out
}

// UpdateVisibility shows the labels of panoID and hides the rest.
func (c *Container) UpdateVisibility(panoID string) {
	for _, l := range c.All() {
		l.SetVisibilityBasedOnLocation(Visible, panoID)
	}
}

// HitTest returns the first visible label under (x, y), if any.
func (c *Container) HitTest(x, y, iconRadius float64) (*Label, bool) {
	for _, l := range c.All() {
		if l.IsOn(x, y, iconRadius) {
			return l, true
		}
	}
	return nil, false
}

// FeatureCollection returns the non-deleted labels as GeoJSON points.
func (c *Container) FeatureCollection() (*geojson.FeatureCollection, error) {
	return ToFeatureCollection(c.All())
}

// ToFeatureCollection converts labels to GeoJSON points at their estimated positions.
// Deleted labels are skipped.
func ToFeatureCollection(labels []*Label) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, l := range labels {
		if l.IsDeleted() {
			continue
		}
		est, err := l.LatLng()
		if err != nil {
			return nil, fmt.Errorf("label %s: %w", l.ID(), err)
		}
		f := geojson.NewFeature(est.Point())
		f.ID = l.ID().String()
		f.Properties["label_id"] = l.ID().String()
		f.Properties["label_type"] = string(l.Type())
		f.Properties["pano_id"] = l.PanoID()
		f.Properties["method"] = string(est.Method)
		f.Properties["created_at"] = l.CreatedAt().Format(time.RFC3339)
		if sev := l.Severity(); sev != nil {
			f.Properties["severity"] = *sev
		}
		if d := l.Description(); d != "" {
			f.Properties["description"] = d
		}
		fc.Append(f)
	}
	return fc, nil
}
