// Package sqlite provides the SQLite-backed knowledge store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Queries are built with squirrel and scanned with sqlx.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files; applied versions are recorded in schema_migrations.
//
// Chunk list fields (themes, concepts, symbols, keywords) are JSON arrays.
// Embeddings are little-endian float32 blobs. The first stored chunk fixes
// the collection's dimensionality in the meta table.
//
// # Data Location
//
// By default, the database is stored at ~/.reverie/data/knowledge.db
//
// # Similarity Search
//
// Scope and metadata filters run in SQL; cosine similarity is computed in
// process over the remaining candidates. Use the postgres adapter for large
// corpora.
package sqlite
