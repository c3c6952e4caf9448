package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/vecmath"
)

const chunksTable = "chunks"

var chunkColumns = []string{
	"id", "scope", "source", "chapter", "position", "start_offset", "end_offset",
	"content", "content_type", "themes", "concepts", "symbols", "keywords",
	"complexity", "confidence_type", "confidence_themes", "confidence_overall",
	"embedding", "sparse_embedding", "created_at",
}

// chunkRow is the storage shape of a chunk.
type chunkRow struct {
	ID                string         `db:"id"`
	Scope             string         `db:"scope"`
	Source            string         `db:"source"`
	Chapter           string         `db:"chapter"`
	Position          int            `db:"position"`
	StartOffset       int            `db:"start_offset"`
	EndOffset         int            `db:"end_offset"`
	Content           string         `db:"content"`
	ContentType       string         `db:"content_type"`
	Themes            string         `db:"themes"`
	Concepts          string         `db:"concepts"`
	Symbols           string         `db:"symbols"`
	Keywords          string         `db:"keywords"`
	Complexity        float64        `db:"complexity"`
	ConfidenceType    float64        `db:"confidence_type"`
	ConfidenceThemes  float64        `db:"confidence_themes"`
	ConfidenceOverall float64        `db:"confidence_overall"`
	Embedding         []byte         `db:"embedding"`
	SparseEmbedding   sql.NullString `db:"sparse_embedding"`
	CreatedAt         int64          `db:"created_at"`
}

func (r *chunkRow) toDomain() (domain.Chunk, error) {
	c := domain.Chunk{
		ID:          r.ID,
		Scope:       r.Scope,
		Source:      r.Source,
		Chapter:     r.Chapter,
		Position:    r.Position,
		StartOffset: r.StartOffset,
		EndOffset:   r.EndOffset,
		Content:     r.Content,
		ContentType: domain.ContentType(r.ContentType),
		Complexity:  r.Complexity,
		Confidence: domain.Confidence{
			ContentType: r.ConfidenceType,
			Themes:      r.ConfidenceThemes,
			Overall:     r.ConfidenceOverall,
		},
		Embedding: bytesToFloat32Slice(r.Embedding),
		CreatedAt: time.Unix(0, r.CreatedAt),
	}
	var err error
	if c.Themes, err = decodeList(r.Themes); err != nil {
		return c, err
	}
	if c.Concepts, err = decodeList(r.Concepts); err != nil {
		return c, err
	}
	if c.Symbols, err = decodeList(r.Symbols); err != nil {
		return c, err
	}
	if c.Keywords, err = decodeList(r.Keywords); err != nil {
		return c, err
	}
	if r.SparseEmbedding.Valid && r.SparseEmbedding.String != "" {
		if err := json.Unmarshal([]byte(r.SparseEmbedding.String), &c.SparseEmbedding); err != nil {
			return c, fmt.Errorf("unmarshalling sparse embedding: %w", err)
		}
	}
	return c, nil
}

// InsertChunks writes the batch in one transaction.
func (s *Store) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	established, err := dims(ctx, tx)
	if err != nil {
		return err
	}
	d := established
	for i := range chunks {
		if err := chunks[i].ValidateForWrite(d); err != nil {
			return err
		}
		d = len(chunks[i].Embedding)
	}

	now := time.Now()
	insert := sq.Insert(chunksTable).Columns(chunkColumns...)
	for i := range chunks {
		c := &chunks[i]
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		created := c.CreatedAt
		if created.IsZero() {
			created = now
		}
		var sparse sql.NullString
		if len(c.SparseEmbedding) > 0 {
			b, err := json.Marshal(c.SparseEmbedding)
			if err != nil {
				return fmt.Errorf("marshalling sparse embedding: %w", err)
			}
			sparse = sql.NullString{String: string(b), Valid: true}
		}
		insert = insert.Values(
			id, c.Scope, c.Source, c.Chapter, c.Position, c.StartOffset, c.EndOffset,
			c.Content, string(c.ContentType), encodeList(c.Themes), encodeList(c.Concepts),
			encodeList(c.Symbols), encodeList(c.Keywords), c.Complexity,
			c.Confidence.ContentType, c.Confidence.Themes, c.Confidence.Overall,
			float32SliceToBytes(c.Embedding), sparse, created.UnixNano(),
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return errorSQLBuild(err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting chunks: %w", err)
	}

	if established == 0 {
		query, args, err = sq.Insert("meta").Columns("key", "value").
			Values(metaDims, strconv.Itoa(d)).
			Suffix("ON CONFLICT(key) DO NOTHING").
			ToSql()
		if err != nil {
			return errorSQLBuild(err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("recording embedding dimensions: %w", err)
		}
	}

	return tx.Commit()
}

// SimilaritySearch narrows candidates in SQL and ranks them by cosine
// similarity in process.
func (s *Store) SimilaritySearch(ctx context.Context, q domain.SimilarityQuery) ([]domain.SimilarityHit, error) {
	if len(q.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	d, err := dims(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if d > 0 && len(q.Embedding) != d {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			domain.ErrDimensionMismatch, len(q.Embedding), d)
	}

	rows, err := s.selectChunks(ctx, filterWhere(q.Scope, q.Filter), 0)
	if err != nil {
		return nil, err
	}

	var hits []domain.SimilarityHit
	for i := range rows {
		sim := vecmath.Cosine(q.Embedding, bytesToFloat32Slice(rows[i].Embedding))
		if sim < q.Threshold {
			continue
		}
		c, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		hits = append(hits, domain.SimilarityHit{Chunk: c, Similarity: sim})
	}
	domain.SortHits(hits)
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// filterWhere translates scope and metadata filters into SQL predicates.
// Theme membership is tested against the JSON list with json_each.
func filterWhere(scope string, f *domain.MetadataFilter) sq.And {
	where := sq.And{}
	if scope != "" {
		where = append(where, sq.Eq{"scope": scope})
	}
	if f.IsEmpty() {
		return where
	}
	if len(f.ContentTypes) > 0 {
		types := make([]string, len(f.ContentTypes))
		for i, ct := range f.ContentTypes {
			types[i] = string(ct)
		}
		where = append(where, sq.Eq{"content_type": types})
	}
	if len(f.Sources) > 0 {
		where = append(where, sq.Eq{"source": f.Sources})
	}
	if len(f.Themes) > 0 {
		args := make([]any, len(f.Themes))
		for i, t := range f.Themes {
			args[i] = t
		}
		where = append(where, sq.Expr(
			"EXISTS (SELECT 1 FROM json_each(chunks.themes) WHERE json_each.value IN ("+sq.Placeholders(len(args))+"))",
			args...,
		))
	}
	return where
}

func (s *Store) selectChunks(ctx context.Context, where sq.Sqlizer, limit int) ([]chunkRow, error) {
	query := sq.Select(chunkColumns...).From(chunksTable).
		Where(where).
		OrderBy("source", "position", "scope")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errorSQLBuild(err)
	}
	var rows []chunkRow
	if err := s.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	return rows, nil
}

// ListChunks returns chunks ordered by source then position.
func (s *Store) ListChunks(ctx context.Context, filter driven.ChunkFilter) ([]domain.Chunk, error) {
	where := filterWhere(filter.Scope, nil)
	if filter.Source != "" {
		where = append(where, sq.Eq{"source": filter.Source})
	}
	rows, err := s.selectChunks(ctx, where, filter.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Chunk, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ExistingPositions returns the stored positions of one source in a scope.
func (s *Store) ExistingPositions(ctx context.Context, scope, source string) (map[int]bool, error) {
	query, args, err := sq.Select("position").From(chunksTable).
		Where(sq.Eq{"scope": scope, "source": source}).
		ToSql()
	if err != nil {
		return nil, errorSQLBuild(err)
	}
	var positions []int
	if err := s.db.SelectContext(ctx, &positions, query, args...); err != nil {
		return nil, fmt.Errorf("querying positions: %w", err)
	}
	out := make(map[int]bool, len(positions))
	for _, p := range positions {
		out[p] = true
	}
	return out, nil
}

// UpdateClassification replaces a chunk's classification and records the
// audit row in the same transaction.
func (s *Store) UpdateClassification(
	ctx context.Context, chunkID string, cl domain.Classification, audit domain.ClassificationAudit,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	query, args, err := sq.Update(chunksTable).
		Set("content_type", string(cl.PrimaryContentType)).
		Set("themes", encodeList(cl.Themes)).
		Set("concepts", encodeList(cl.Concepts)).
		Set("symbols", encodeList(cl.Symbols)).
		Set("keywords", encodeList(cl.Keywords)).
		Set("complexity", cl.Complexity).
		Set("confidence_type", cl.Confidence.ContentType).
		Set("confidence_themes", cl.Confidence.Themes).
		Set("confidence_overall", cl.Confidence.Overall).
		Where(sq.Eq{"id": chunkID}).
		ToSql()
	if err != nil {
		return errorSQLBuild(err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating chunk %q: %w", chunkID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("chunk %q: %w", chunkID, domain.ErrNotFound)
	}

	created := audit.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	query, args, err = sq.Insert("classification_audit").
		Columns("chunk_id", "previous_type", "previous_themes", "previous_confidence",
			"new_type", "new_themes", "new_confidence", "reason", "created_at").
		Values(chunkID, string(audit.PreviousType), encodeList(audit.PreviousThemes), audit.PreviousConfidence,
			string(audit.NewType), encodeList(audit.NewThemes), audit.NewConfidence, audit.Reason, created.UnixNano()).
		ToSql()
	if err != nil {
		return errorSQLBuild(err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("recording audit for %q: %w", chunkID, err)
	}
	return tx.Commit()
}

type auditRow struct {
	ID                 int64   `db:"id"`
	ChunkID            string  `db:"chunk_id"`
	PreviousType       string  `db:"previous_type"`
	PreviousThemes     string  `db:"previous_themes"`
	PreviousConfidence float64 `db:"previous_confidence"`
	NewType            string  `db:"new_type"`
	NewThemes          string  `db:"new_themes"`
	NewConfidence      float64 `db:"new_confidence"`
	Reason             string  `db:"reason"`
	CreatedAt          int64   `db:"created_at"`
}

// ClassificationHistory returns a chunk's audits, oldest first.
func (s *Store) ClassificationHistory(ctx context.Context, chunkID string) ([]domain.ClassificationAudit, error) {
	if err := s.chunkExists(ctx, chunkID); err != nil {
		return nil, err
	}
	query, args, err := sq.Select("id", "chunk_id", "previous_type", "previous_themes", "previous_confidence",
		"new_type", "new_themes", "new_confidence", "reason", "created_at").
		From("classification_audit").
		Where(sq.Eq{"chunk_id": chunkID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, errorSQLBuild(err)
	}
	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying audits: %w", err)
	}

	out := make([]domain.ClassificationAudit, 0, len(rows))
	for _, r := range rows {
		a := domain.ClassificationAudit{
			ID:                 r.ID,
			ChunkID:            r.ChunkID,
			PreviousType:       domain.ContentType(r.PreviousType),
			PreviousConfidence: r.PreviousConfidence,
			NewType:            domain.ContentType(r.NewType),
			NewConfidence:      r.NewConfidence,
			Reason:             r.Reason,
			CreatedAt:          time.Unix(0, r.CreatedAt),
		}
		if a.PreviousThemes, err = decodeList(r.PreviousThemes); err != nil {
			return nil, err
		}
		if a.NewThemes, err = decodeList(r.NewThemes); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) chunkExists(ctx context.Context, chunkID string) error {
	var id string
	err := sqlx.GetContext(ctx, s.db, &id, "SELECT id FROM chunks WHERE id = ?", chunkID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("chunk %q: %w", chunkID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("looking up chunk %q: %w", chunkID, err)
	}
	return nil
}
