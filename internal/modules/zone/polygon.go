package zone

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"

	"cargo/internal/types"
)

var ErrNoPolygon = errors.New("no boundary polygon in document")

// Polygon is the toll boundary. It is immutable once loaded.
type Polygon struct {
	polys []*geom.Polygon
}

// LoadPolygon reads a GeoJSON document holding a Polygon or MultiPolygon,
// either bare, as a Feature or inside a FeatureCollection.
func LoadPolygon(path string) (*Polygon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zone: read polygon %s", path)
	}
	return ParsePolygon(raw)
}

func ParsePolygon(raw []byte) (*Polygon, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, eris.Wrap(err, "zone: parse polygon")
	}

	var geoms []geom.T
	switch head.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(raw, &fc); err != nil {
			return nil, eris.Wrap(err, "zone: parse feature collection")
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, eris.Wrap(err, "zone: parse feature")
		}
		geoms = append(geoms, f.Geometry)
	default:
		var g geom.T
		if err := geojson.Unmarshal(raw, &g); err != nil {
			return nil, eris.Wrap(err, "zone: parse geometry")
		}
		geoms = append(geoms, g)
	}

	p := &Polygon{}
	for _, g := range geoms {
		switch g := g.(type) {
		case *geom.Polygon:
			p.polys = append(p.polys, g)
		case *geom.MultiPolygon:
			for i := 0; i < g.NumPolygons(); i++ {
				p.polys = append(p.polys, g.Polygon(i))
			}
		}
	}
	if len(p.polys) == 0 {
		return nil, ErrNoPolygon
	}
	for _, poly := range p.polys {
		if poly.NumLinearRings() == 0 || poly.LinearRing(0).NumCoords() < 4 {
			return nil, eris.Wrap(ErrNoPolygon, "zone: ring needs at least 4 points")
		}
	}
	return p, nil
}

// Contains reports whether pt lies inside an outer ring and outside that polygon's holes.
func (p *Polygon) Contains(pt types.Point) bool {
	c := geom.Coord{pt.Lng, pt.Lat}
	for _, poly := range p.polys {
		layout := poly.Layout()
		if !xy.IsPointInRing(layout, c, poly.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for i := 1; i < poly.NumLinearRings(); i++ {
			if xy.IsPointInRing(layout, c, poly.LinearRing(i).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// Ring returns the outer ring of the first polygon as lat/lng points.
func (p *Polygon) Ring() []types.Point {
	ring := p.polys[0].LinearRing(0)
	out := make([]types.Point, ring.NumCoords())
	for i := range out {
		c := ring.Coord(i)
		out[i] = types.Point{Lat: c.Y(), Lng: c.X()}
	}
	return out
}

func (p *Polygon) String() string {
	return fmt.Sprintf("Polygon(%d parts, %d points)", len(p.polys), len(p.Ring()))
}
