package store

// schemaSQL is the DDL for all tables. Every build is kept; concepts and
// their edges belong to one build.
const schemaSQL = `
-- One row per graph build
CREATE TABLE IF NOT EXISTS builds (
    id INTEGER PRIMARY KEY,
    uuid TEXT NOT NULL UNIQUE,
    weights TEXT NOT NULL,
    concept_count INTEGER NOT NULL,
    pair_count INTEGER NOT NULL DEFAULT 0,
    neighbor_count INTEGER NOT NULL DEFAULT 0,
    reference_count INTEGER NOT NULL DEFAULT 0,
    undefined_count INTEGER NOT NULL DEFAULT 0,
    elapsed_ms INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Concepts as parsed, one row per concept per build
CREATE TABLE IF NOT EXISTS concepts (
    id INTEGER PRIMARY KEY,
    build_id INTEGER NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
    concept_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    names JSON NOT NULL,
    kind TEXT NOT NULL,
    language TEXT,
    filename TEXT,
    process INTEGER NOT NULL DEFAULT 0,
    context JSON,
    tags JSON,
    texts JSON,
    images JSON,
    tables JSON,
    UNIQUE(build_id, concept_id)
);

-- Ranked neighbor lists (rank 0 is the nearest)
CREATE TABLE IF NOT EXISTS neighbors (
    concept_id INTEGER NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
    rank INTEGER NOT NULL,
    neighbor_id INTEGER NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
    score REAL NOT NULL,
    PRIMARY KEY (concept_id, rank)
);

-- Name-based reference edges; direction is 'to' or 'by'
CREATE TABLE IF NOT EXISTS concept_references (
    concept_id INTEGER NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
    direction TEXT NOT NULL CHECK (direction IN ('to', 'by')),
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    PRIMARY KEY (concept_id, direction, position)
);

-- Cluster detection results
CREATE TABLE IF NOT EXISTS clusters (
    id INTEGER PRIMARY KEY,
    build_id INTEGER NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
    level INTEGER NOT NULL,
    members JSON NOT NULL
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_concepts_build ON concepts(build_id);
CREATE INDEX IF NOT EXISTS idx_neighbors_neighbor ON neighbors(neighbor_id);
CREATE INDEX IF NOT EXISTS idx_references_name ON concept_references(name);
CREATE INDEX IF NOT EXISTS idx_clusters_build ON clusters(build_id);
`
