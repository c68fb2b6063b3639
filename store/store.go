package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a build or concept does not exist.
var ErrNotFound = errors.New("store: not found")

// Build represents a row in the builds table.
type Build struct {
	ID           int64  `json:"id"`
	UUID         string `json:"uuid"`
	Weights      string `json:"weights"`
	ConceptCount int    `json:"concept_count"`
	Pairs        int    `json:"pairs"`
	Neighbors    int    `json:"neighbors"`
	References   int    `json:"references"`
	Undefined    int    `json:"undefined"`
	ElapsedMS    int64  `json:"elapsed_ms"`
	CreatedAt    string `json:"created_at"`
}

// Concept represents a row in the concepts table. ConceptID is the
// identifier assigned while parsing; ID is the row ID.
type Concept struct {
	ID        int64           `json:"id"`
	BuildID   int64           `json:"build_id"`
	ConceptID int             `json:"concept_id"`
	Name      string          `json:"name"`
	Names     []string        `json:"names"`
	Kind      string          `json:"kind"`
	Language  string          `json:"language"`
	Filename  string          `json:"filename"`
	Process   bool            `json:"process"`
	Context   []string        `json:"context"`
	Tags      []string        `json:"tags"`
	Texts     []string        `json:"texts"`
	Images    json.RawMessage `json:"images,omitempty"`
	Tables    json.RawMessage `json:"tables,omitempty"`

	// Graph edges, written by SaveSnapshot. Read them with Neighbors and
	// References.
	Neighbors    []Neighbor `json:"neighbors,omitempty"`
	ReferenceTo  []string   `json:"reference_to,omitempty"`
	ReferencedBy []string   `json:"referenced_by,omitempty"`
}

// Neighbor is one ranked neighbor entry. ConceptID refers to the neighbor's
// parse-time identifier within the same build.
type Neighbor struct {
	Rank      int     `json:"rank"`
	ConceptID int     `json:"concept_id"`
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
}

// Cluster represents a row in the clusters table.
type Cluster struct {
	ID      int64    `json:"id"`
	BuildID int64    `json:"build_id"`
	Level   int      `json:"level"`
	Members []string `json:"members"`
}

// Snapshot is everything persisted for one build.
type Snapshot struct {
	Build    Build
	Concepts []Concept
	Clusters []Cluster
}

// Store wraps the SQLite database for all concept graph persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Build operations ---

// SaveSnapshot writes a build with its concepts, edges and clusters in one
// transaction and returns the build row ID. Neighbor entries must point at
// concepts of the same snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) (int64, error) {
	var buildID int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		b := snap.Build
		res, err := tx.ExecContext(ctx, `
			INSERT INTO builds (uuid, weights, concept_count, pair_count, neighbor_count,
				reference_count, undefined_count, elapsed_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, b.UUID, b.Weights, len(snap.Concepts), b.Pairs, b.Neighbors, b.References, b.Undefined, b.ElapsedMS)
		if err != nil {
			return fmt.Errorf("inserting build: %w", err)
		}
		if buildID, err = res.LastInsertId(); err != nil {
			return err
		}

		rowIDs, err := insertConcepts(ctx, tx, buildID, snap.Concepts)
		if err != nil {
			return err
		}
		if err := insertEdges(ctx, tx, snap.Concepts, rowIDs); err != nil {
			return err
		}

		for _, c := range snap.Clusters {
			members, err := jsonList(c.Members)
			if err != nil {
				return fmt.Errorf("encoding cluster members: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO clusters (build_id, level, members) VALUES (?, ?, ?)",
				buildID, c.Level, members); err != nil {
				return fmt.Errorf("inserting cluster: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return buildID, nil
}

// insertConcepts inserts the concept rows and maps each parse-time ID to its
// row ID.
func insertConcepts(ctx context.Context, tx *sql.Tx, buildID int64, concepts []Concept) (map[int]int64, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO concepts (build_id, concept_id, name, names, kind, language, filename,
			process, context, tags, texts, images, tables)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rowIDs := make(map[int]int64, len(concepts))
	for _, c := range concepts {
		var lists [4]string
		for i, xs := range [][]string{c.Names, c.Context, c.Tags, c.Texts} {
			if lists[i], err = jsonList(xs); err != nil {
				return nil, fmt.Errorf("encoding concept %q: %w", c.Name, err)
			}
		}
		res, err := stmt.ExecContext(ctx,
			buildID, c.ConceptID, c.Name, lists[0], c.Kind, c.Language, c.Filename,
			c.Process, lists[1], lists[2], lists[3],
			rawOrNil(c.Images), rawOrNil(c.Tables))
		if err != nil {
			return nil, fmt.Errorf("inserting concept %q: %w", c.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		rowIDs[c.ConceptID] = id
	}
	return rowIDs, nil
}

func insertEdges(ctx context.Context, tx *sql.Tx, concepts []Concept, rowIDs map[int]int64) error {
	nstmt, err := tx.PrepareContext(ctx,
		"INSERT INTO neighbors (concept_id, rank, neighbor_id, score) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer nstmt.Close()

	rstmt, err := tx.PrepareContext(ctx,
		"INSERT INTO concept_references (concept_id, direction, position, name) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer rstmt.Close()

	for _, c := range concepts {
		owner := rowIDs[c.ConceptID]
		for rank, n := range c.Neighbors {
			nid, ok := rowIDs[n.ConceptID]
			if !ok {
				return fmt.Errorf("neighbor %d of concept %q is not in the snapshot", n.ConceptID, c.Name)
			}
			if _, err := nstmt.ExecContext(ctx, owner, rank, nid, n.Score); err != nil {
				return fmt.Errorf("inserting neighbor of %q: %w", c.Name, err)
			}
		}
		for pos, name := range c.ReferenceTo {
			if _, err := rstmt.ExecContext(ctx, owner, "to", pos, name); err != nil {
				return fmt.Errorf("inserting reference of %q: %w", c.Name, err)
			}
		}
		for pos, name := range c.ReferencedBy {
			if _, err := rstmt.ExecContext(ctx, owner, "by", pos, name); err != nil {
				return fmt.Errorf("inserting back-reference of %q: %w", c.Name, err)
			}
		}
	}
	return nil
}

const buildColumns = `id, uuid, weights, concept_count, pair_count, neighbor_count,
	reference_count, undefined_count, elapsed_ms, created_at`

func scanBuild(row interface{ Scan(...any) error }) (*Build, error) {
	b := &Build{}
	err := row.Scan(&b.ID, &b.UUID, &b.Weights, &b.ConceptCount, &b.Pairs, &b.Neighbors,
		&b.References, &b.Undefined, &b.ElapsedMS, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ListBuilds returns all builds, newest first.
func (s *Store) ListBuilds(ctx context.Context) ([]Build, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+buildColumns+" FROM builds ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, *b)
	}
	return builds, rows.Err()
}

// LatestBuild returns the most recent build.
func (s *Store) LatestBuild(ctx context.Context) (*Build, error) {
	return scanBuild(s.db.QueryRowContext(ctx,
		"SELECT "+buildColumns+" FROM builds ORDER BY id DESC LIMIT 1"))
}

// GetBuild returns the build with the given UUID.
func (s *Store) GetBuild(ctx context.Context, uuid string) (*Build, error) {
	return scanBuild(s.db.QueryRowContext(ctx,
		"SELECT "+buildColumns+" FROM builds WHERE uuid = ?", uuid))
}

// DeleteBuild removes a build and cascades to its concepts, edges and
// clusters.
func (s *Store) DeleteBuild(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM builds WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Concept operations ---

const conceptColumns = `id, build_id, concept_id, name, names, kind, language, filename,
	process, context, tags, texts, images, tables`

func scanConcept(row interface{ Scan(...any) error }) (*Concept, error) {
	c := &Concept{}
	var (
		names, context, tags, texts sql.NullString
		language, filename          sql.NullString
		images, tables              sql.NullString
	)
	err := row.Scan(&c.ID, &c.BuildID, &c.ConceptID, &c.Name, &names, &c.Kind, &language, &filename,
		&c.Process, &context, &tags, &texts, &images, &tables)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Language = language.String
	c.Filename = filename.String
	for _, f := range []struct {
		src  sql.NullString
		dest *[]string
	}{
		{names, &c.Names},
		{context, &c.Context},
		{tags, &c.Tags},
		{texts, &c.Texts},
	} {
		if err := decodeList(f.src, f.dest); err != nil {
			return nil, fmt.Errorf("decoding concept %q: %w", c.Name, err)
		}
	}
	if images.Valid {
		c.Images = json.RawMessage(images.String)
	}
	if tables.Valid {
		c.Tables = json.RawMessage(tables.String)
	}
	return c, nil
}

// ListConcepts returns the concepts of a build in parse order.
func (s *Store) ListConcepts(ctx context.Context, buildID int64) ([]Concept, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+conceptColumns+" FROM concepts WHERE build_id = ? ORDER BY concept_id", buildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var concepts []Concept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, *c)
	}
	return concepts, rows.Err()
}

// GetConceptByName finds a concept of a build by any of its names, ignoring
// case. When several match, the first parsed wins.
func (s *Store) GetConceptByName(ctx context.Context, buildID int64, name string) (*Concept, error) {
	return scanConcept(s.db.QueryRowContext(ctx, `
		SELECT `+conceptColumns+` FROM concepts
		WHERE build_id = ? AND (
			name = ? COLLATE NOCASE
			OR EXISTS (SELECT 1 FROM json_each(concepts.names) WHERE value = ? COLLATE NOCASE)
		)
		ORDER BY concept_id LIMIT 1
	`, buildID, name, name))
}

// Neighbors returns the ranked neighbor list of a concept row.
func (s *Store) Neighbors(ctx context.Context, conceptRowID int64) ([]Neighbor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.rank, c.concept_id, c.name, n.score
		FROM neighbors n JOIN concepts c ON c.id = n.neighbor_id
		WHERE n.concept_id = ?
		ORDER BY n.rank
	`, conceptRowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.Rank, &n.ConceptID, &n.Name, &n.Score); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// References returns the names a concept row mentions and the names of the
// concepts that mention it, in insertion order.
func (s *Store) References(ctx context.Context, conceptRowID int64) (to, by []string, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT direction, name FROM concept_references
		WHERE concept_id = ?
		ORDER BY direction DESC, position
	`, conceptRowID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	to, by = []string{}, []string{}
	for rows.Next() {
		var dir, name string
		if err := rows.Scan(&dir, &name); err != nil {
			return nil, nil, err
		}
		if dir == "to" {
			to = append(to, name)
		} else {
			by = append(by, name)
		}
	}
	return to, by, rows.Err()
}

// Clusters returns the clusters of a build in the order they were saved.
func (s *Store) Clusters(ctx context.Context, buildID int64) ([]Cluster, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, level, members FROM clusters WHERE build_id = ? ORDER BY id", buildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Cluster
	for rows.Next() {
		var (
			c       Cluster
			members sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.BuildID, &c.Level, &members); err != nil {
			return nil, err
		}
		if err := decodeList(members, &c.Members); err != nil {
			return nil, fmt.Errorf("decoding cluster %d: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DBStats holds row counts for the main tables.
type DBStats struct {
	Builds     int `json:"builds"`
	Concepts   int `json:"concepts"`
	Neighbors  int `json:"neighbors"`
	References int `json:"references"`
	Clusters   int `json:"clusters"`
}

// DBStats returns row counts for builds, concepts, neighbors, references and
// clusters.
func (s *Store) DBStats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM builds", &stats.Builds},
		{"SELECT COUNT(*) FROM concepts", &stats.Concepts},
		{"SELECT COUNT(*) FROM neighbors", &stats.Neighbors},
		{"SELECT COUNT(*) FROM concept_references", &stats.References},
		{"SELECT COUNT(*) FROM clusters", &stats.Clusters},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// jsonList encodes xs as a JSON array; nil encodes as [].
func jsonList(xs []string) (string, error) {
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func decodeList(src sql.NullString, dest *[]string) error {
	*dest = []string{}
	if !src.Valid || src.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(src.String), dest)
}
