// Command render runs one fetch-normalize-render job synchronously, or lists
// the artifacts already rendered.
//
// Usage:
//
//	go run ./cmd/render -state California -variable totalPopulation
//	go run ./cmd/render -list
//
// Settings not covered by flags come from the same environment variables as
// the service (CENSUS_API_KEY, SHAPE_PATH, OUTPUT_DIR, ...).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/couchcryptid/census-map-service/internal/adapter/census"
	"github.com/couchcryptid/census-map-service/internal/adapter/render"
	"github.com/couchcryptid/census-map-service/internal/adapter/shapes"
	"github.com/couchcryptid/census-map-service/internal/catalog"
	"github.com/couchcryptid/census-map-service/internal/config"
	"github.com/couchcryptid/census-map-service/internal/domain"
	"github.com/couchcryptid/census-map-service/internal/observability"
	"github.com/couchcryptid/census-map-service/internal/pipeline"
)

func main() {
	state := flag.String("state", "", "state name or postal code")
	variable := flag.String("variable", "", "registered variable key")
	outDir := flag.String("out", "", "artifact directory (default OUTPUT_DIR)")
	fullState := flag.Bool("full-state", false, "draw every county of the state, including those without a value")
	list := flag.Bool("list", false, "list rendered artifacts instead of rendering")
	flag.Parse()

	if !*list && (*state == "" || *variable == "") {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *fullState {
		cfg.RenderFullState = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if code := run(ctx, cfg, *state, *variable, *list, os.Stdout); code != 0 {
		stop()
		os.Exit(code)
	}
}

func run(ctx context.Context, cfg *config.Config, state, variable string, list bool, out io.Writer) int {
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetricsForTesting()

	registry, err := domain.LoadRegistry(cfg.VariablesFile)
	if err != nil {
		logger.Error("failed to load variable registry", "error", err)
		return 1
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if list {
		entries, err := catalog.New(cfg.OutputDir, registry, logger, metrics).List(ctx)
		if err != nil {
			logger.Error("list failed", "error", err)
			return 1
		}
		if err := enc.Encode(entries); err != nil {
			logger.Error("write listing", "error", err)
			return 1
		}
		return 0
	}

	geo, err := domain.LoadGeoLookup(cfg.StateCoordsFile)
	if err != nil {
		logger.Error("failed to load state coordinates", "error", err)
		return 1
	}

	fetcher := census.NewClient(cfg.CensusAPIKey, cfg.CensusBaseURL, cfg.CensusTimeout, registry, metrics, logger)
	renderer := render.New(shapes.NewRepository(cfg.ShapePath, metrics, logger), geo, registry, cfg.RenderFullState, logger)
	p := pipeline.New(fetcher, renderer, registry, cfg.OutputDir, logger, metrics)

	job := domain.RenderJob{
		ID:          uuid.NewString(),
		State:       state,
		Variable:    variable,
		RequestedAt: domain.NowEastern(nil),
	}
	jobCtx, cancel := context.WithTimeout(ctx, cfg.JobTimeout)
	defer cancel()

	res, err := p.Process(jobCtx, job)
	if err != nil {
		logger.Error("render failed", "error", err, "code", domain.ErrorCode(err))
		return 1
	}
	if err := enc.Encode(map[string]any{"path": res.Path, "counties": res.Counties}); err != nil {
		logger.Error("write result", "error", err)
		return 1
	}
	return 0
}
