// Package catalog lists rendered artifacts by decoding their file names.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/census-map-service/internal/domain"
	"github.com/couchcryptid/census-map-service/internal/observability"
)

// LinkPrefix is the URL path artifacts are served under.
const LinkPrefix = "/output/"

// Catalog reads the artifact directory on every call; nothing is cached.
type Catalog struct {
	dir      string
	registry *domain.Registry
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Catalog over dir.
func New(dir string, registry *domain.Registry, logger *slog.Logger, metrics *observability.Metrics) *Catalog {
	return &Catalog{dir: dir, registry: registry, logger: logger, metrics: metrics}
}

type listed struct {
	entry domain.ResultEntry
	date  time.Time
}

// List returns one entry per decodable .html file under the directory,
// newest first and then by state. Files whose names cannot be decoded are
// logged and skipped. A missing directory yields an empty list.
func (c *Catalog) List(ctx context.Context) ([]domain.ResultEntry, error) {
	var found []listed
	err := filepath.WalkDir(c.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == c.dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".html") {
			return nil
		}

		rel, err := filepath.Rel(c.dir, p)
		if err != nil {
			return err
		}
		item, ok := c.decode(rel)
		if ok {
			found = append(found, item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts in %s: %w", c.dir, err)
	}

	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].date.Equal(found[j].date) {
			return found[i].date.After(found[j].date)
		}
		return found[i].entry.StateName < found[j].entry.StateName
	})

	out := make([]domain.ResultEntry, len(found))
	for i, f := range found {
		out[i] = f.entry
	}
	return out, nil
}

func (c *Catalog) decode(rel string) (listed, bool) {
	decoded, err := domain.DecodeArtifactName(rel, c.registry)
	if err != nil {
		c.metrics.CatalogSkipped.Inc()
		c.logger.Warn("skipping undecodable artifact", "file", rel, "error", err, "code", domain.ErrorCode(err))
		return listed{}, false
	}
	// DecodeArtifactName has already validated the date.
	date, _ := time.Parse(domain.ResultDateLayout, decoded.Date)
	return listed{
		entry: domain.ResultEntry{
			StateName:           decoded.State,
			VariableDisplayName: decoded.VariableDisplay,
			RequestedAt:         decoded.Date,
			ArtifactLink:        LinkPrefix + path.Clean(filepath.ToSlash(rel)),
		},
		date: date,
	}, true
}
