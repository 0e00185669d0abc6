// README: Classifies points as inside or outside the ring road boundary.
package zone

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"cargo/internal/catalog"
	"cargo/internal/types"
)

type Label string

const (
	City    Label = "city"
	Outside Label = "outside"
)

// Snapshotter hands out the current catalog.
type Snapshotter interface {
	Snapshot() *catalog.Snapshot
}

// Classifier labels points. The polygon is loaded lazily on first use; a
// failed load is remembered and the classifier falls back to keywords and
// distance from the configured city center for the life of the process.
type Classifier struct {
	catalog Snapshotter
	load    func() (*Polygon, error)
	logger  *zap.Logger

	once    sync.Once
	poly    *Polygon
	loadErr error
}

// NewClassifier reads the polygon from path. An empty path disables polygon checks.
func NewClassifier(cat Snapshotter, path string, logger *zap.Logger) *Classifier {
	load := func() (*Polygon, error) { return LoadPolygon(path) }
	if path == "" {
		load = func() (*Polygon, error) { return nil, ErrNoPolygon }
	}
	return NewClassifierWith(cat, load, logger)
}

// NewClassifierWith uses a custom polygon source.
func NewClassifierWith(cat Snapshotter, load func() (*Polygon, error), logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{catalog: cat, load: load, logger: logger}
}

// Polygon returns the boundary, loading it on first call.
func (c *Classifier) Polygon() (*Polygon, error) {
	c.once.Do(func() {
		c.poly, c.loadErr = c.load()
		if c.loadErr != nil {
			c.logger.Warn("boundary polygon unavailable, using keyword and radius fallback", zap.Error(c.loadErr))
			return
		}
		c.logger.Info("boundary polygon loaded", zap.Stringer("polygon", c.poly))
	})
	return c.poly, c.loadErr
}

func (c *Classifier) Classify(p types.Point, address string) Label {
	if poly, err := c.Polygon(); err == nil {
		if poly.Contains(p) {
			return City
		}
		return Outside
	}

	zd := c.catalog.Snapshot().Pricing.ZoneDetection
	if ContainsKeyword(address, zd.KadKeywords) {
		return Outside
	}
	if HaversineKm(p, zd.CityCenter) <= zd.CityRadiusKm {
		return City
	}
	return Outside
}

// ContainsKeyword reports whether the lower-cased address mentions any keyword.
func ContainsKeyword(address string, keywords []string) bool {
	a := strings.ToLower(address)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(a, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
