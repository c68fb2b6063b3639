// Package conceptgraph turns hand-authored concept definitions into a
// weighted concept graph and keeps every build in SQLite.
//
// A build loads definition files into concepts, scores every ordered pair of
// concepts (see package concept), infers name-based reference edges, groups
// the result into clusters and saves the snapshot.
package conceptgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/conceptgraph/concept"
	"github.com/brunobiangulo/conceptgraph/graph"
	"github.com/brunobiangulo/conceptgraph/lang"
	"github.com/brunobiangulo/conceptgraph/media"
	"github.com/brunobiangulo/conceptgraph/parser"
	"github.com/brunobiangulo/conceptgraph/store"
	"github.com/brunobiangulo/conceptgraph/table"
)

// Engine is the main entry point for building and querying concept graphs.
type Engine interface {
	// Load decodes the definition files under paths (files or directories)
	// into concepts, in file order. Any parse error aborts the load.
	Load(ctx context.Context, paths ...string) ([]*concept.Concept, error)

	// Build runs the all-pairs pass over concepts. Call it once per
	// collection.
	Build(ctx context.Context, concepts []*concept.Concept) (*graph.Result, error)

	// Save persists a built graph with its clusters as a new build.
	Save(ctx context.Context, res *graph.Result) (*BuildInfo, error)

	// Ingest loads, builds and saves in one call.
	Ingest(ctx context.Context, paths ...string) (*BuildInfo, error)

	// Neighbors returns the ranked neighbors of a concept of the latest build.
	Neighbors(ctx context.Context, name string) ([]Neighbor, error)

	// References returns the reference edges of a concept of the latest build.
	References(ctx context.Context, name string) (*References, error)

	// ListConcepts returns the concepts of the latest build.
	ListConcepts(ctx context.Context) ([]ConceptSummary, error)

	// ListBuilds returns all saved builds, newest first.
	ListBuilds(ctx context.Context) ([]BuildInfo, error)

	// SearchImages looks up candidate image URLs for a concept.
	SearchImages(ctx context.Context, name string) (media.SearchResult, error)

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// BuildInfo describes a saved build.
type BuildInfo struct {
	ID         int64  `json:"id"`
	UUID       string `json:"uuid"`
	Weights    string `json:"weights"`
	Concepts   int    `json:"concepts"`
	Pairs      int    `json:"pairs"`
	Neighbors  int    `json:"neighbors"`
	References int    `json:"references"`
	Undefined  int    `json:"undefined"`
	Clusters   int    `json:"clusters,omitempty"`
	ElapsedMS  int64  `json:"elapsed_ms"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// Neighbor is one ranked neighbor of a concept.
type Neighbor struct {
	Rank  int     `json:"rank"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// References lists the reference edges of a concept. Evidence maps a
// referenced name to the sentence of the concept's texts that mentions it,
// when the reference came from the texts rather than the tags.
type References struct {
	Concept      string            `json:"concept"`
	ReferenceTo  []string          `json:"reference_to"`
	ReferencedBy []string          `json:"referenced_by"`
	Evidence     map[string]string `json:"evidence,omitempty"`
}

// ConceptSummary is the listing view of a stored concept.
type ConceptSummary struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Names    []string `json:"names"`
	Kind     string   `json:"kind"`
	Language string   `json:"language"`
	Filename string   `json:"filename"`
	Process  bool     `json:"process"`
	Tags     []string `json:"tags"`
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg      Config
	store    *store.Store
	registry *concept.Registry
	parsers  *parser.Registry
	concepts *parser.ConceptParser
	searcher *media.Searcher
}

// New creates an engine with the given configuration.
func New(cfg Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	langs, err := lang.NewResolver(cfg.Lang, cfg.Locales)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	dbPath := cfg.resolveDBPath()
	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	registry := concept.NewRegistry()
	e := &engine{
		cfg:      cfg,
		store:    s,
		registry: registry,
		parsers:  parser.NewRegistry(),
		concepts: parser.NewConceptParser(registry, langs, media.NewLoader(), table.NewBuilder()),
	}
	if cfg.ImageSearch.Enabled {
		e.searcher = media.NewSearcher(media.SearchConfig{
			Endpoint:      cfg.ImageSearch.Endpoint,
			RatePerSecond: cfg.ImageSearch.RatePerSecond,
			Timeout:       cfg.ImageSearch.Timeout,
		})
	}

	slog.Info("conceptgraph: engine ready", "db", dbPath, "lang", cfg.Lang,
		"weights", cfg.Weights().String(), "image_search", cfg.ImageSearch.Enabled)
	return e, nil
}

// Load decodes the files in parallel and creates concepts sequentially, so
// identifiers follow file order.
func (e *engine) Load(ctx context.Context, paths ...string) ([]*concept.Concept, error) {
	files, err := e.collectFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoDefinitions, paths)
	}

	docs := make([]*parser.Document, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.ParseConcurrency, 1))
	for i, f := range files {
		g.Go(func() error {
			p, err := e.parsers.ForPath(f)
			if err != nil {
				return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
			}
			doc, err := p.Parse(gctx, f)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrParsingFailed, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var concepts []*concept.Concept
	for _, doc := range docs {
		for _, node := range doc.Concepts {
			c, err := e.concepts.Parse(ctx, node, doc.Path, doc.Lang, doc.Context)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrParsingFailed, err)
			}
			c.Process = e.shouldProcess(c)
			concepts = append(concepts, c)
		}
	}

	slog.Info("conceptgraph: definitions loaded", "files", len(files), "concepts", len(concepts))
	return concepts, nil
}

// collectFiles expands directories into the definition files they contain,
// in lexical order. Explicit file paths must have a registered format.
func (e *engine) collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving path: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if _, err := e.parsers.ForPath(abs); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, abs)
			}
			files = append(files, abs)
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != abs && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if _, err := e.parsers.ForPath(path); err == nil {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", abs, err)
		}
	}
	return files, nil
}

// shouldProcess reports whether c is selected by Config.Process: "*", one of
// its names, or its definition file name with or without extension.
func (e *engine) shouldProcess(c *concept.Concept) bool {
	base := filepath.Base(c.Filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	for _, p := range e.cfg.Process {
		if p == ProcessAll || c.HasName(p) || p == base || p == stem {
			return true
		}
	}
	return false
}

// Build runs the graph builder with the configured weights.
func (e *engine) Build(ctx context.Context, concepts []*concept.Concept) (*graph.Result, error) {
	return graph.NewBuilder(e.cfg.Weights(), e.cfg.GraphConcurrency).Build(ctx, concepts)
}

// Save converts the built concepts into a store snapshot and writes it.
func (e *engine) Save(ctx context.Context, res *graph.Result) (*BuildInfo, error) {
	clusters := graph.Clusters(res.Concepts)

	snap := store.Snapshot{
		Build: store.Build{
			UUID:       uuid.NewString(),
			Weights:    res.Weights.String(),
			Pairs:      res.Pairs,
			Neighbors:  res.Neighbors,
			References: res.References,
			Undefined:  res.Undefined,
			ElapsedMS:  res.Elapsed.Milliseconds(),
		},
		Concepts: make([]store.Concept, 0, len(res.Concepts)),
		Clusters: make([]store.Cluster, 0, len(clusters)),
	}
	for _, c := range res.Concepts {
		row, err := toStoreConcept(c)
		if err != nil {
			return nil, err
		}
		snap.Concepts = append(snap.Concepts, row)
	}
	for _, cl := range clusters {
		snap.Clusters = append(snap.Clusters, store.Cluster{Level: cl.Level, Members: cl.Members})
	}

	id, err := e.store.SaveSnapshot(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("saving build: %w", err)
	}

	info := &BuildInfo{
		ID:         id,
		UUID:       snap.Build.UUID,
		Weights:    snap.Build.Weights,
		Concepts:   len(snap.Concepts),
		Pairs:      res.Pairs,
		Neighbors:  res.Neighbors,
		References: res.References,
		Undefined:  res.Undefined,
		Clusters:   len(clusters),
		ElapsedMS:  snap.Build.ElapsedMS,
	}
	slog.Info("conceptgraph: build saved", "build", info.UUID, "concepts", info.Concepts, "clusters", info.Clusters)
	return info, nil
}

func toStoreConcept(c *concept.Concept) (store.Concept, error) {
	row := store.Concept{
		ConceptID:    c.ID,
		Name:         c.Name(),
		Names:        c.Names,
		Kind:         c.Kind,
		Filename:     c.Filename,
		Process:      c.Process,
		Context:      c.Context,
		Tags:         c.Tags,
		Texts:        c.Texts,
		ReferenceTo:  c.ReferenceTo(),
		ReferencedBy: c.ReferencedBy(),
	}
	if c.Language != nil {
		row.Language = c.Language.Code
	}
	if len(c.Images) > 0 {
		raw, err := json.Marshal(c.Images)
		if err != nil {
			return store.Concept{}, fmt.Errorf("encoding images of %q: %w", row.Name, err)
		}
		row.Images = raw
	}
	if len(c.Tables) > 0 {
		raw, err := json.Marshal(c.Tables)
		if err != nil {
			return store.Concept{}, fmt.Errorf("encoding tables of %q: %w", row.Name, err)
		}
		row.Tables = raw
	}
	for _, n := range c.Neighbors() {
		row.Neighbors = append(row.Neighbors, store.Neighbor{
			ConceptID: n.Concept.ID,
			Name:      n.Concept.Name(),
			Score:     n.Score,
		})
	}
	return row, nil
}

// Ingest loads, builds and saves.
func (e *engine) Ingest(ctx context.Context, paths ...string) (*BuildInfo, error) {
	start := time.Now()
	concepts, err := e.Load(ctx, paths...)
	if err != nil {
		return nil, err
	}
	res, err := e.Build(ctx, concepts)
	if err != nil {
		return nil, err
	}
	info, err := e.Save(ctx, res)
	if err != nil {
		return nil, err
	}
	slog.Info("conceptgraph: ingest complete", "build", info.UUID,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return info, nil
}

// latest returns the most recent build.
func (e *engine) latest(ctx context.Context) (*store.Build, error) {
	b, err := e.store.LatestBuild(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoBuild
	}
	return b, err
}

// lookup finds a concept of the latest build by name.
func (e *engine) lookup(ctx context.Context, name string) (*store.Concept, error) {
	b, err := e.latest(ctx)
	if err != nil {
		return nil, err
	}
	c, err := e.store.GetConceptByName(ctx, b.ID, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrConceptNotFound, name)
	}
	return c, err
}

func (e *engine) Neighbors(ctx context.Context, name string) ([]Neighbor, error) {
	c, err := e.lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	rows, err := e.store.Neighbors(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	out := make([]Neighbor, len(rows))
	for i, r := range rows {
		out[i] = Neighbor{Rank: r.Rank, Name: r.Name, Score: r.Score}
	}
	return out, nil
}

func (e *engine) References(ctx context.Context, name string) (*References, error) {
	c, err := e.lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	to, by, err := e.store.References(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	refs := &References{Concept: c.Name, ReferenceTo: to, ReferencedBy: by}
	for _, target := range to {
		if _, done := refs.Evidence[target]; done {
			continue
		}
		t, err := e.store.GetConceptByName(ctx, c.BuildID, target)
		if err != nil {
			continue
		}
		if s := mentionSnippet(c.Texts, t.Names); s != "" {
			if refs.Evidence == nil {
				refs.Evidence = make(map[string]string)
			}
			refs.Evidence[target] = s
		}
	}
	return refs, nil
}

func (e *engine) ListConcepts(ctx context.Context) ([]ConceptSummary, error) {
	b, err := e.latest(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := e.store.ListConcepts(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	out := make([]ConceptSummary, len(rows))
	for i, r := range rows {
		out[i] = ConceptSummary{
			ID:       r.ConceptID,
			Name:     r.Name,
			Names:    r.Names,
			Kind:     r.Kind,
			Language: r.Language,
			Filename: r.Filename,
			Process:  r.Process,
			Tags:     r.Tags,
		}
	}
	return out, nil
}

func (e *engine) ListBuilds(ctx context.Context) ([]BuildInfo, error) {
	builds, err := e.store.ListBuilds(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BuildInfo, len(builds))
	for i, b := range builds {
		out[i] = BuildInfo{
			ID:         b.ID,
			UUID:       b.UUID,
			Weights:    b.Weights,
			Concepts:   b.ConceptCount,
			Pairs:      b.Pairs,
			Neighbors:  b.Neighbors,
			References: b.References,
			Undefined:  b.Undefined,
			ElapsedMS:  b.ElapsedMS,
			CreatedAt:  b.CreatedAt,
		}
	}
	return out, nil
}

// SearchImages searches with the concept's primary name and context. When no
// stored concept has that name, name itself is the query.
func (e *engine) SearchImages(ctx context.Context, name string) (media.SearchResult, error) {
	if e.searcher == nil {
		return media.SearchResult{}, ErrImageSearchDisabled
	}

	terms := []string{name}
	c, err := e.lookup(ctx, name)
	switch {
	case err == nil:
		terms = append([]string{c.Name}, c.Context...)
	case errors.Is(err, ErrNoBuild), errors.Is(err, ErrConceptNotFound):
	default:
		return media.SearchResult{}, err
	}
	return e.searcher.Search(ctx, terms...), nil
}

// Store returns the underlying store for diagnostic access.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine.
func (e *engine) Close() error {
	return e.store.Close()
}
