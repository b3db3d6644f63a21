package label

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/svlabel/internal/debug"
	"github.com/cjeanneret/svlabel/internal/logic/geolocate"
	"github.com/cjeanneret/svlabel/internal/logic/geometry"
)

// Params are the values a label is created from.
type Params struct {
	ID          uuid.UUID // zero value: a new ID is generated
	TemporaryID uuid.UUID // client-side ID used before the label is stored
	Type        Type
	PanoID      string
	Snapshot    geolocate.Snapshot
	Severity    *int
	Description string
	TagIDs      []int
	CreatedAt   time.Time

	// Estimate is a previously computed position (e.g. loaded from storage).
	// When set, the label never recomputes it.
	Estimate *geolocate.Estimate
}

// Label is an accessibility label placed on a panorama.
// The snapshot and derived direction are fixed at creation; only display
// status changes afterwards.
type Label struct {
	id          uuid.UUID
	temporaryID uuid.UUID
	labelType   Type
	panoID      string
	snapshot    geolocate.Snapshot
	povCentered geometry.ProjectionResult
	severity    *int
	description string
	tagIDs      []int
	createdAt   time.Time

	latLngOnce sync.Once
	latLng     geolocate.Estimate
	latLngErr  error

	mu              sync.RWMutex
	currCanvas      geometry.CanvasPoint
	deleted         bool
	visibility      Visibility
	hoverVisibility Visibility
}

// New validates params and creates a label.
// The heading/pitch the label points at is derived once here.
func New(p Params) (*Label, error) {
	if _, err := ParseType(string(p.Type)); err != nil {
		return nil, err
	}
	if err := p.Snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("label snapshot: %w", err)
	}
	pov, err := geometry.Project(p.Snapshot.CanvasPoint, p.Snapshot.Canvas, p.Snapshot.Pose)
	if err != nil {
		return nil, fmt.Errorf("label direction: %w", err)
	}

	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var sev *int
	if p.Severity != nil && p.Type.HasSeverity() {
		v := *p.Severity
		sev = &v
	}

	l := &Label{
		id:              id,
		temporaryID:     p.TemporaryID,
		labelType:       p.Type,
		panoID:          p.PanoID,
		snapshot:        p.Snapshot,
		povCentered:     pov,
		severity:        sev,
		description:     p.Description,
		tagIDs:          append([]int(nil), p.TagIDs...),
		createdAt:       createdAt,
		currCanvas:      p.Snapshot.CanvasPoint,
		visibility:      Visible,
		hoverVisibility: Visible,
	}

	if p.Estimate != nil {
		est := *p.Estimate
		l.latLngOnce.Do(func() {
			l.latLng = est
		})
	}
	return l, nil
}

func (l *Label) ID() uuid.UUID                            { return l.id }
func (l *Label) TemporaryID() uuid.UUID                   { return l.temporaryID }
func (l *Label) Type() Type                               { return l.labelType }
func (l *Label) PanoID() string                           { return l.panoID }
func (l *Label) Snapshot() geolocate.Snapshot             { return l.snapshot }
func (l *Label) Description() string                      { return l.description }
func (l *Label) CreatedAt() time.Time                     { return l.createdAt }
func (l *Label) TagIDs() []int                            { return append([]int(nil), l.tagIDs...) }
func (l *Label) PovIfCentered() geometry.ProjectionResult { return l.povCentered }

// Severity returns the severity rating, or nil when unset.
func (l *Label) Severity() *int {
	if l.severity == nil {
		return nil
	}
	v := *l.severity
	return &v
}

// LatLng returns the label's estimated position.
//
// The first call computes it (method approximation2); every later call returns
// the same coordinates with method cached. Concurrent first callers block until
// the single computation finishes and share its result.
func (l *Label) LatLng() (geolocate.Estimate, error) {
	computed := false
	l.latLngOnce.Do(func() {
		computed = true
		l.latLng, l.latLngErr = geolocate.Compute(l.snapshot)
	})
	if l.latLngErr != nil {
		return geolocate.Estimate{}, l.latLngErr
	}
	est := l.latLng
	if !computed {
		est.Method = geolocate.MethodCached
	} else {
		debug.Estimate(l.id.String(), est.Lat, est.Lng, string(est.Method))
	}
	return est, nil
}

// StoredEstimate returns the computed estimate with its original method tag,
// computing it if needed. Used when persisting.
func (l *Label) StoredEstimate() (geolocate.Estimate, error) {
	if _, err := l.LatLng(); err != nil {
		return geolocate.Estimate{}, err
	}
	return l.latLng, nil
}

// CanvasCoordinate returns where the label is currently drawn.
func (l *Label) CanvasCoordinate() geometry.CanvasPoint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currCanvas
}

// SetCanvasCoordinate records where the viewer currently draws the label.
func (l *Label) SetCanvasCoordinate(p geometry.CanvasPoint) {
	l.mu.Lock()
	l.currCanvas = p
	l.mu.Unlock()
}

// IsOn reports whether (x, y) hits the label icon of the given radius.
func (l *Label) IsOn(x, y, iconRadius float64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.deleted || l.visibility == Hidden {
		return false
	}
	margin := iconRadius/2 + 2
	c := l.currCanvas
	return x < c.X+margin && x > c.X-margin &&
		y < c.Y+margin && y > c.Y-margin
}

// Remove marks the label deleted and hides it. Labels are never dropped outright.
func (l *Label) Remove() {
	l.mu.Lock()
	l.deleted = true
	l.visibility = Hidden
	l.mu.Unlock()
}

func (l *Label) IsDeleted() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.deleted
}

func (l *Label) IsVisible() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.visibility == Visible
}

func (l *Label) Visibility() Visibility {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.visibility
}

func (l *Label) HoverInfoVisibility() Visibility {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hoverVisibility
}

// SetVisibility sets label visibility; unknown values are ignored.
func (l *Label) SetVisibility(v Visibility) {
	if !v.valid() {
		return
	}
	l.mu.Lock()
	l.visibility = v
	l.mu.Unlock()
}

// SetHoverInfoVisibility sets hover info visibility; unknown values are ignored.
func (l *Label) SetHoverInfoVisibility(v Visibility) {
	if !v.valid() {
		return
	}
	l.mu.Lock()
	l.hoverVisibility = v
	l.mu.Unlock()
}

// SetVisibilityBasedOnLocation applies v when the viewer shows this label's
// panorama and the opposite otherwise. Deleted labels are left alone.
func (l *Label) SetVisibilityBasedOnLocation(v Visibility, panoID string) {
	if !v.valid() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.deleted {
		return
	}
	if panoID == l.panoID {
		l.visibility = v
	} else {
		l.visibility = v.opposite()
	}
}
