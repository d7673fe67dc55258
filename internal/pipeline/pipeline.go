package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/census-map-service/internal/domain"
	"github.com/couchcryptid/census-map-service/internal/observability"
)

// Fetcher retrieves the labeled upstream tables for a state and variable.
type Fetcher interface {
	Fetch(ctx context.Context, state, variable string) ([]domain.Table, error)
}

// Renderer writes a choropleth artifact for normalized records.
type Renderer interface {
	Render(ctx context.Context, records []domain.NormalizedRecord, state, variable, outputPath string) (domain.RenderResult, error)
}

// Notifier announces a written artifact.
type Notifier interface {
	NotifyArtifact(ctx context.Context, event domain.ArtifactEvent) error
}

// Pipeline runs the fetch, normalize and render stages for one job.
type Pipeline struct {
	fetcher   Fetcher
	renderer  Renderer
	notifier  Notifier
	registry  *domain.Registry
	outputDir string
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline writing artifacts under outputDir.
func New(f Fetcher, r Renderer, registry *domain.Registry, outputDir string, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher:   f,
		renderer:  r,
		registry:  registry,
		outputDir: outputDir,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
		metrics:   metrics,
	}
}

// WithNotifier publishes an ArtifactEvent after every successful render.
func (p *Pipeline) WithNotifier(n Notifier) *Pipeline {
	p.notifier = n
	return p
}

// WithClock replaces the clock used to stamp artifact events.
func (p *Pipeline) WithClock(c clockwork.Clock) *Pipeline {
	p.clock = c
	return p
}

// Process validates the job, fetches and normalizes its data and renders the
// artifact. Any failure before the render stage leaves no artifact behind.
func (p *Pipeline) Process(ctx context.Context, job domain.RenderJob) (domain.RenderResult, error) {
	spec, err := p.registry.Lookup(job.Variable)
	if err != nil {
		return domain.RenderResult{}, err
	}
	st, err := domain.LookupState(job.State)
	if err != nil {
		return domain.RenderResult{}, err
	}
	job.State = st.Name
	job.Variable = spec.Key

	log := p.logger.With("job_id", job.ID, "state", job.State, "variable", job.Variable)

	tables, err := p.fetcher.Fetch(ctx, job.State, job.Variable)
	if err != nil {
		return domain.RenderResult{}, fmt.Errorf("fetch: %w", err)
	}

	records, err := domain.Normalize(tables, spec)
	if err != nil {
		return domain.RenderResult{}, fmt.Errorf("normalize: %w", err)
	}
	log.Debug("records normalized", "counties", len(records))

	out := filepath.Join(p.outputDir, job.ArtifactName())
	res, err := p.renderer.Render(ctx, records, job.State, job.Variable, out)
	if err != nil {
		return domain.RenderResult{}, fmt.Errorf("render: %w", err)
	}
	log.Info("artifact written", "path", res.Path, "counties", res.Counties)

	p.notify(ctx, job, res, log)
	return res, nil
}

// notify never fails the job; the artifact is already on disk.
func (p *Pipeline) notify(ctx context.Context, job domain.RenderJob, res domain.RenderResult, log *slog.Logger) {
	if p.notifier == nil {
		return
	}
	event := domain.ArtifactEvent{
		JobID:        job.ID,
		State:        job.State,
		Variable:     job.Variable,
		ArtifactName: filepath.Base(res.Path),
		Counties:     res.Counties,
		RenderedAt:   p.clock.Now().UTC(),
	}
	if err := p.notifier.NotifyArtifact(ctx, event); err != nil {
		p.metrics.NotifyFailures.Inc()
		log.Warn("artifact notification failed", "error", err)
	}
}
