//go:build cgo

package conceptgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rubyDefinitions = `<?xml version="1.0" encoding="UTF-8"?>
<map lang="en" context="programming, ruby">
  <concept>
    <names>array, list</names>
    <tags>collection, ordered</tags>
    <def>An array keeps items in order. A hash stores pairs.</def>
  </concept>
  <concept>
    <names>hash</names>
    <tags>collection, keyed</tags>
    <def>Keys map to values.</def>
  </concept>
  <concept>
    <names>loop</names>
    <tags>control</tags>
    <def>Repeat some work.</def>
  </concept>
</map>`

func newTestEngine(t *testing.T, mutate func(*Config)) Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func writeDefinitions(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	return dir
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FormulaWeights = []float64{1}
	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadDirectory(t *testing.T) {
	e := newTestEngine(t, nil)
	dir := writeDefinitions(t, "ruby.xml", rubyDefinitions)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	concepts, err := e.Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, concepts, 3)

	assert.Equal(t, "array", concepts[0].Name())
	assert.Equal(t, []string{"array", "list"}, concepts[0].Names)
	assert.Equal(t, []string{"programming", "ruby"}, concepts[1].Context)
	assert.Equal(t, "en", concepts[2].Language.Code)
	assert.Less(t, concepts[0].ID, concepts[1].ID)
	assert.Less(t, concepts[1].ID, concepts[2].ID)
	for _, c := range concepts {
		assert.False(t, c.Process, c.Name())
	}
}

func TestLoadProcessFilter(t *testing.T) {
	tests := []struct {
		name    string
		process []string
		want    []bool
	}{
		{"all", []string{ProcessAll}, []bool{true, true, true}},
		{"by name", []string{"LIST"}, []bool{true, false, false}},
		{"by file stem", []string{"ruby"}, []bool{true, true, true}},
		{"by file name", []string{"ruby.xml"}, []bool{true, true, true}},
		{"other file", []string{"python"}, []bool{false, false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, func(c *Config) { c.Process = tt.process })
			dir := writeDefinitions(t, "ruby.xml", rubyDefinitions)

			concepts, err := e.Load(context.Background(), dir)
			require.NoError(t, err)
			got := make([]bool, len(concepts))
			for i, c := range concepts {
				got[i] = c.Process
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.Load(ctx, t.TempDir())
	assert.ErrorIs(t, err, ErrNoDefinitions)

	dir := writeDefinitions(t, "notes.txt", "plain text")
	_, err = e.Load(ctx, filepath.Join(dir, "notes.txt"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	dir = writeDefinitions(t, "broken.xml", `<map><concept><names>x</names>`)
	_, err = e.Load(ctx, dir)
	assert.ErrorIs(t, err, ErrParsingFailed)

	dir = writeDefinitions(t, "empty-tags.xml", `<map><concept><tags> , </tags></concept></map>`)
	_, err = e.Load(ctx, dir)
	assert.ErrorIs(t, err, ErrParsingFailed)

	_, err = e.Load(ctx, filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestQueriesBeforeBuild(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.Neighbors(ctx, "array")
	assert.ErrorIs(t, err, ErrNoBuild)
	_, err = e.ListConcepts(ctx)
	assert.ErrorIs(t, err, ErrNoBuild)

	builds, err := e.ListBuilds(ctx)
	require.NoError(t, err)
	assert.Empty(t, builds)
}

func TestIngestAndQuery(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	dir := writeDefinitions(t, "ruby.xml", rubyDefinitions)

	info, err := e.Ingest(ctx, dir)
	require.NoError(t, err)
	assert.NotEmpty(t, info.UUID)
	assert.Equal(t, 3, info.Concepts)
	assert.Equal(t, 6, info.Pairs)
	assert.Equal(t, 6, info.Neighbors)
	assert.Equal(t, 1, info.References)
	assert.Equal(t, 0, info.Undefined)
	assert.Equal(t, 1, info.Clusters)

	neighbors, err := e.Neighbors(ctx, "array")
	require.NoError(t, err)
	require.Len(t, neighbors, 2)
	assert.Equal(t, Neighbor{Rank: 0, Name: "hash", Score: 75}, neighbors[0])
	assert.Equal(t, Neighbor{Rank: 1, Name: "loop", Score: 50}, neighbors[1])

	// Lookups match any name, ignoring case.
	byAlias, err := e.Neighbors(ctx, "List")
	require.NoError(t, err)
	assert.Equal(t, neighbors, byAlias)

	loop, err := e.Neighbors(ctx, "loop")
	require.NoError(t, err)
	require.Len(t, loop, 2)
	assert.Equal(t, "array", loop[0].Name)
	assert.Equal(t, "hash", loop[1].Name)
	assert.InDelta(t, 66.67, loop[0].Score, 0.01)

	refs, err := e.References(ctx, "array")
	require.NoError(t, err)
	assert.Equal(t, "array", refs.Concept)
	assert.Equal(t, []string{"hash"}, refs.ReferenceTo)
	assert.Empty(t, refs.ReferencedBy)
	assert.Contains(t, refs.Evidence["hash"], "A hash stores pairs")

	back, err := e.References(ctx, "hash")
	require.NoError(t, err)
	assert.Empty(t, back.ReferenceTo)
	assert.Equal(t, []string{"array"}, back.ReferencedBy)
	assert.Empty(t, back.Evidence)

	summaries, err := e.ListConcepts(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "array", summaries[0].Name)
	assert.Equal(t, "en", summaries[0].Language)
	assert.Equal(t, []string{"collection", "ordered"}, summaries[0].Tags)

	_, err = e.Neighbors(ctx, "tuple")
	assert.ErrorIs(t, err, ErrConceptNotFound)
}

func TestIngestKeepsHistory(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	dir := writeDefinitions(t, "ruby.xml", rubyDefinitions)

	first, err := e.Ingest(ctx, dir)
	require.NoError(t, err)
	second, err := e.Ingest(ctx, dir)
	require.NoError(t, err)
	assert.NotEqual(t, first.UUID, second.UUID)

	builds, err := e.ListBuilds(ctx)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, second.UUID, builds[0].UUID)
	assert.Equal(t, 3, builds[0].Concepts)

	// Queries read the latest build only.
	summaries, err := e.ListConcepts(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 3)
}

func TestSearchImagesDisabled(t *testing.T) {
	e := newTestEngine(t, nil)
	_, err := e.SearchImages(context.Background(), "array")
	assert.ErrorIs(t, err, ErrImageSearchDisabled)
}
