package task

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/cjeanneret/svlabel/internal/debug"
)

// LoadFeatureCollection parses street edges of a region from a GeoJSON
// FeatureCollection of LineStrings with "street_edge_id" and optional
// "completed" properties.
func LoadFeatureCollection(regionID int, data []byte) ([]*Task, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse tasks: %w", err)
	}
	tasks := make([]*Task, 0, len(fc.Features))
	for i, f := range fc.Features {
		line, ok := f.Geometry.(orb.LineString)
		if !ok {
			return nil, fmt.Errorf("feature %d: geometry %s, want LineString", i, geometryType(f))
		}
		edgeID, err := edgeIDProperty(f.Properties)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		completed, err := completedProperty(f.Properties)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		t, err := New(edgeID, regionID, line, completed)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func edgeIDProperty(props geojson.Properties) (int, error) {
	switch v := props["street_edge_id"].(type) {
	case nil:
		return 0, errors.New("missing street_edge_id")
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			return 0, fmt.Errorf("street_edge_id %g is not an integer", v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("street_edge_id has type %T, want number", v)
	}
}

func completedProperty(props geojson.Properties) (bool, error) {
	switch v := props["completed"].(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return false, fmt.Errorf("completed has type %T, want boolean", v)
	}
}

func geometryType(f *geojson.Feature) string {
	if f.Geometry == nil {
		return "null"
	}
	return f.Geometry.GeoJSONType()
}

// LoadRegion parses a region's street edges and stores them. It returns how many were new.
func (c *Container) LoadRegion(regionID int, data []byte) (int, error) {
	tasks, err := LoadFeatureCollection(regionID, data)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	if _, ok := c.byRegion[regionID]; !ok {
		c.byRegion[regionID] = nil
	}
	c.mu.Unlock()

	added := 0
	for _, t := range tasks {
		if c.Store(t) {
			added++
		}
	}
	debug.Info("Loaded %d tasks in region %d", added, regionID)
	return added, nil
}

// LoadRegionFile reads a region's street edges from a GeoJSON file.
func (c *Container) LoadRegionFile(regionID int, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read tasks: %w", err)
	}
	return c.LoadRegion(regionID, data)
}
