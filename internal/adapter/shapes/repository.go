// Package shapes serves county boundary geometries from a GeoJSON dataset of
// TIGER/Line counties.
package shapes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/census-map-service/internal/domain"
	"github.com/couchcryptid/census-map-service/internal/observability"
)

// Repository loads the boundary dataset on first use and keeps it for the
// life of the process. It is safe for concurrent use; after the first
// successful load every call is a read of immutable data.
type Repository struct {
	path    string
	metrics *observability.Metrics
	logger  *slog.Logger

	mu     sync.RWMutex
	loaded bool
	shapes []domain.ShapeRecord
}

// NewRepository creates a repository backed by the GeoJSON file at path.
// Nothing is read until Load or Filter is called.
func NewRepository(path string, metrics *observability.Metrics, logger *slog.Logger) *Repository {
	return &Repository{path: path, metrics: metrics, logger: logger}
}

// Load reads the dataset if it has not been read yet. A failed load leaves the
// repository empty so a later call can try again.
func (r *Repository) Load(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrShapeFileMissing, r.path)
		}
		return fmt.Errorf("read shape file: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return fmt.Errorf("decode shape file %s: %w", r.path, err)
	}

	shapes := make([]domain.ShapeRecord, 0, len(fc.Features))
	seen := make(map[string]bool, len(fc.Features))
	skipped := 0
	for _, f := range fc.Features {
		fips, ok := featureFIPS(f.Properties)
		if !ok || f.Geometry == nil || seen[fips] {
			skipped++
			continue
		}
		seen[fips] = true
		shapes = append(shapes, domain.ShapeRecord{
			FIPS:     fips,
			Name:     featureName(f.Properties),
			Geometry: f.Geometry,
		})
	}

	if skipped > 0 {
		r.logger.Warn("skipped boundary features without a usable county code",
			"path", r.path, "skipped", skipped)
	}
	r.logger.Info("county boundaries loaded", "path", r.path, "counties", len(shapes))
	r.metrics.ShapesLoaded.Set(float64(len(shapes)))

	r.shapes = shapes
	r.loaded = true
	return nil
}

// Filter returns the geometries to draw for fips. With fullState false it
// returns exactly the geometries whose code is in fips. With fullState true
// it returns every geometry in the state of fips[0], whether or not it has a
// value.
func (r *Repository) Filter(ctx context.Context, fips []string, fullState bool) ([]domain.ShapeRecord, error) {
	if err := r.Load(ctx); err != nil {
		return nil, err
	}
	if len(fips) == 0 {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.ShapeRecord
	if fullState {
		prefix := fips[0][:min(2, len(fips[0]))]
		for _, s := range r.shapes {
			if s.StateFIPS() == prefix {
				out = append(out, s)
			}
		}
		return out, nil
	}

	want := make(map[string]bool, len(fips))
	for _, f := range fips {
		want[f] = true
	}
	for _, s := range r.shapes {
		if want[s.FIPS] {
			out = append(out, s)
		}
	}
	return out, nil
}

// Len reports how many geometries are loaded.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shapes)
}

// featureFIPS reads STATEFP+COUNTYFP, falling back to GEOID.
func featureFIPS(p geojson.Properties) (string, bool) {
	state, county := stringProp(p, "STATEFP"), stringProp(p, "COUNTYFP")
	if state != "" && county != "" {
		fips, err := domain.CompositeFIPS(state, county)
		return fips, err == nil
	}
	geoid := stringProp(p, "GEOID")
	if len(geoid) == 5 {
		fips, err := domain.CompositeFIPS(geoid[:2], geoid[2:])
		return fips, err == nil
	}
	return "", false
}

func featureName(p geojson.Properties) string {
	if name := stringProp(p, "NAMELSAD"); name != "" {
		return name
	}
	return stringProp(p, "NAME")
}

func stringProp(p geojson.Properties, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}
