// Package render draws joined county values as a self-contained Leaflet
// choropleth page.
package render

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/couchcryptid/census-map-service/internal/domain"
)

//go:embed templates/map.html.tmpl
var templateFS embed.FS

var mapTemplate = template.Must(template.ParseFS(templateFS, "templates/map.html.tmpl"))

// ShapeSource provides county geometries. shapes.Repository satisfies it.
type ShapeSource interface {
	Filter(ctx context.Context, fips []string, fullState bool) ([]domain.ShapeRecord, error)
}

// Style holds the layer styling written into every page.
type Style struct {
	FillOpacity      float64
	LineColor        string
	LineOpacity      float64
	HoverColor       string
	HoverOpacity     float64
	HoverWeight      float64
	HighlightColor   string
	HighlightOpacity float64
}

// DefaultStyle is a translucent fill with grey borders and a near-invisible
// hover layer that darkens under the pointer.
var DefaultStyle = Style{
	FillOpacity:      0.75,
	LineColor:        "grey",
	LineOpacity:      0.5,
	HoverColor:       "#ffffff",
	HoverOpacity:     0.1,
	HoverWeight:      0.1,
	HighlightColor:   "#000000",
	HighlightOpacity: 0.5,
}

// Renderer writes choropleth artifacts. It implements pipeline.Renderer.
type Renderer struct {
	shapes    ShapeSource
	geo       *domain.GeoLookup
	registry  *domain.Registry
	fullState bool
	logger    *slog.Logger
}

// New creates a Renderer. With fullState set every county of the state is
// drawn, including those without a value.
func New(shapes ShapeSource, geo *domain.GeoLookup, registry *domain.Registry, fullState bool, logger *slog.Logger) *Renderer {
	return &Renderer{
		shapes:    shapes,
		geo:       geo,
		registry:  registry,
		fullState: fullState,
		logger:    logger,
	}
}

type legendClass struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

type pageData struct {
	Title       string
	DisplayName string
	Lat, Lon    float64
	Zoom        int
	Data        *geojson.FeatureCollection
	Legend      []legendClass
	Style       Style
}

// Render joins records to their geometries and writes the page to outputPath,
// creating parent directories as needed.
func (r *Renderer) Render(ctx context.Context, records []domain.NormalizedRecord, state, variable, outputPath string) (domain.RenderResult, error) {
	spec, err := r.registry.Lookup(variable)
	if err != nil {
		return domain.RenderResult{}, err
	}
	st, err := domain.LookupState(state)
	if err != nil {
		return domain.RenderResult{}, err
	}
	view, err := r.geo.View(st.Name)
	if err != nil {
		return domain.RenderResult{}, err
	}

	fips := make([]string, len(records))
	for i, rec := range records {
		fips[i] = rec.FIPS
	}
	shapes, err := r.shapes.Filter(ctx, fips, r.fullState)
	if err != nil {
		return domain.RenderResult{}, fmt.Errorf("filter shapes: %w", err)
	}
	joined := Join(records, shapes, r.fullState)
	if dropped := len(records) - countWithValue(joined); dropped > 0 {
		r.logger.Debug("records without a matching geometry dropped",
			"state", st.Name, "variable", spec.Key, "dropped", dropped)
	}

	values := make([]float64, len(joined))
	for i, j := range joined {
		values[i] = j.Value
	}
	edges := Breaks(values)

	data := pageData{
		Title:       fmt.Sprintf("%s by County, %s", spec.DisplayName, st.Name),
		DisplayName: spec.DisplayName,
		Lat:         view.Center[0],
		Lon:         view.Center[1],
		Zoom:        view.Zoom,
		Data:        featureCollection(joined, edges, spec),
		Legend:      legend(edges, spec.Kind),
		Style:       DefaultStyle,
	}

	if err := ctx.Err(); err != nil {
		return domain.RenderResult{}, err
	}
	if err := writePage(outputPath, data); err != nil {
		return domain.RenderResult{}, err
	}

	return domain.RenderResult{Path: outputPath, Counties: len(joined)}, nil
}

func writePage(path string, data pageData) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close artifact: %w", cerr)
		}
	}()
	if err := mapTemplate.Execute(f, data); err != nil {
		return fmt.Errorf("render template: %w", err)
	}
	return nil
}

func featureCollection(joined []domain.JoinedRecord, edges []float64, spec domain.VariableSpec) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, j := range joined {
		label := formatValue(j.Value, spec.Kind)
		f := geojson.NewFeature(j.Geometry)
		f.ID = j.FIPS
		f.Properties["fips"] = j.FIPS
		f.Properties["county"] = j.County
		f.Properties["value"] = j.Value
		f.Properties["has_value"] = j.HasValue
		f.Properties["fill"] = Ramp[Classify(j.Value, edges)]
		f.Properties["tooltip"] = tooltip(j.County, spec.DisplayName, label)
		fc.Append(f)
	}
	return fc
}

// tooltip is inserted as HTML by Leaflet, so the dynamic parts are escaped here.
func tooltip(county, displayName, value string) string {
	return "<b>County Name: </b>" + template.HTMLEscapeString(county) +
		"<br><b>" + template.HTMLEscapeString(displayName) + ": </b>" + template.HTMLEscapeString(value)
}

func legend(edges []float64, kind domain.VariableKind) []legendClass {
	out := make([]legendClass, len(Ramp))
	for i, color := range Ramp {
		out[i] = legendClass{
			Color: color,
			Label: formatValue(edges[i], kind) + " to " + formatValue(edges[i+1], kind),
		}
	}
	return out
}

var printer = message.NewPrinter(language.AmericanEnglish)

func formatValue(v float64, kind domain.VariableKind) string {
	if kind == domain.KindPercentChange {
		return printer.Sprintf("%.2f%%", v)
	}
	return printer.Sprintf("%d", int64(v))
}

func countWithValue(joined []domain.JoinedRecord) int {
	n := 0
	for _, j := range joined {
		if j.HasValue {
			n++
		}
	}
	return n
}
