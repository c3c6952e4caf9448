package postgres

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
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
)

var chunkColumns = []string{
	"id", "scope", "source", "chapter", "position", "start_offset", "end_offset",
	"content", "content_type", "themes", "concepts", "symbols", "keywords",
	"complexity", "confidence_type", "confidence_themes", "confidence_overall",
	"embedding", "sparse_embedding", "created_at",
}

type chunkRow struct {
	ID                string          `db:"id"`
	Scope             string          `db:"scope"`
	Source            string          `db:"source"`
	Chapter           string          `db:"chapter"`
	Position          int             `db:"position"`
	StartOffset       int             `db:"start_offset"`
	EndOffset         int             `db:"end_offset"`
	Content           string          `db:"content"`
	ContentType       string          `db:"content_type"`
	Themes            pq.StringArray  `db:"themes"`
	Concepts          pq.StringArray  `db:"concepts"`
	Symbols           pq.StringArray  `db:"symbols"`
	Keywords          pq.StringArray  `db:"keywords"`
	Complexity        float64         `db:"complexity"`
	ConfidenceType    float64         `db:"confidence_type"`
	ConfidenceThemes  float64         `db:"confidence_themes"`
	ConfidenceOverall float64         `db:"confidence_overall"`
	Embedding         pgvector.Vector `db:"embedding"`
	SparseEmbedding   []byte          `db:"sparse_embedding"`
	CreatedAt         time.Time       `db:"created_at"`

	// Similarity is only populated by similarity searches.
	Similarity float64 `db:"similarity"`
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
		Themes:      nonNil(r.Themes),
		Concepts:    nonNil(r.Concepts),
		Symbols:     nonNil(r.Symbols),
		Keywords:    nonNil(r.Keywords),
		Complexity:  r.Complexity,
		Confidence: domain.Confidence{
			ContentType: r.ConfidenceType,
			Themes:      r.ConfidenceThemes,
			Overall:     r.ConfidenceOverall,
		},
		Embedding: r.Embedding.Slice(),
		CreatedAt: r.CreatedAt,
	}
	if len(r.SparseEmbedding) > 0 {
		if err := json.Unmarshal(r.SparseEmbedding, &c.SparseEmbedding); err != nil {
			return c, fmt.Errorf("unmarshalling sparse embedding: %w", err)
		}
	}
	return c, nil
}

// textArray binds a TEXT[]; nil binds as an empty array, not NULL.
func textArray(a []string) any {
	if a == nil {
		a = []string{}
	}
	return pq.Array(a)
}

func nonNil(a pq.StringArray) []string {
	if a == nil {
		return []string{}
	}
	return []string(a)
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

	// Serialise first writes so two batches cannot fix different sizes.
	if _, err := tx.ExecContext(ctx, "LOCK TABLE "+metaTable+" IN SHARE ROW EXCLUSIVE MODE"); err != nil {
		return fmt.Errorf("locking meta: %w", err)
	}
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

	query, args, err := insertChunksQuery(chunks, time.Now())
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting chunks: %w", err)
	}

	if established == 0 {
		query, args, err = psql.Insert(metaTable).Columns("key", "value").
			Values(metaDims, strconv.Itoa(d)).
			Suffix("ON CONFLICT (key) DO NOTHING").
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

func insertChunksQuery(chunks []domain.Chunk, now time.Time) (string, []any, error) {
	insert := psql.Insert(chunksTable).Columns(chunkColumns...)
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
		var sparse any
		if len(c.SparseEmbedding) > 0 {
			b, err := json.Marshal(c.SparseEmbedding)
			if err != nil {
				return "", nil, fmt.Errorf("marshalling sparse embedding: %w", err)
			}
			sparse = string(b)
		}
		insert = insert.Values(
			id, c.Scope, c.Source, c.Chapter, c.Position, c.StartOffset, c.EndOffset,
			c.Content, string(c.ContentType), textArray(c.Themes), textArray(c.Concepts),
			textArray(c.Symbols), textArray(c.Keywords), c.Complexity,
			c.Confidence.ContentType, c.Confidence.Themes, c.Confidence.Overall,
			pgvector.NewVector(c.Embedding), sparse, created,
		)
	}
	query, args, err := insert.ToSql()
	if err != nil {
		return "", nil, errorSQLBuild(err)
	}
	return query, args, nil
}

// SimilaritySearch ranks chunks by cosine similarity in the database.
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
	if d == 0 {
		return nil, nil
	}

	query, args, err := similarityQuery(q)
	if err != nil {
		return nil, err
	}
	var rows []chunkRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	hits := make([]domain.SimilarityHit, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		hits = append(hits, domain.SimilarityHit{Chunk: c, Similarity: rows[i].Similarity})
	}
	// Float rounding in the database can reorder near-ties.
	domain.SortHits(hits)
	return hits, nil
}

// similarityQuery builds the ranked candidate query. The vector is bound
// twice: for the score column and for the threshold predicate.
func similarityQuery(q domain.SimilarityQuery) (string, []any, error) {
	vec := pgvector.NewVector(q.Embedding)
	sel := psql.Select(chunkColumns...).
		Column(sq.Expr("1 - (embedding <=> ?) AS similarity", vec)).
		From(chunksTable).
		Where(filterWhere(q.Scope, q.Filter)).
		Where(sq.Expr("1 - (embedding <=> ?) >= ?", vec, q.Threshold)).
		OrderBy("similarity DESC", "id")
	if q.Limit > 0 {
		sel = sel.Limit(uint64(q.Limit))
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return "", nil, errorSQLBuild(err)
	}
	return query, args, nil
}

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
		where = append(where, sq.Expr("themes && ?", textArray(f.Themes)))
	}
	return where
}

// ListChunks returns chunks ordered by source then position.
func (s *Store) ListChunks(ctx context.Context, filter driven.ChunkFilter) ([]domain.Chunk, error) {
	where := filterWhere(filter.Scope, nil)
	if filter.Source != "" {
		where = append(where, sq.Eq{"source": filter.Source})
	}
	sel := psql.Select(chunkColumns...).From(chunksTable).Where(where).OrderBy("source", "position", "scope")
	if filter.Limit > 0 {
		sel = sel.Limit(uint64(filter.Limit))
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, errorSQLBuild(err)
	}
	var rows []chunkRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
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
	query, args, err := psql.Select("position").From(chunksTable).
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

	query, args, err := psql.Update(chunksTable).
		Set("content_type", string(cl.PrimaryContentType)).
		Set("themes", textArray(cl.Themes)).
		Set("concepts", textArray(cl.Concepts)).
		Set("symbols", textArray(cl.Symbols)).
		Set("keywords", textArray(cl.Keywords)).
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
	query, args, err = psql.Insert(auditTable).
		Columns("chunk_id", "previous_type", "previous_themes", "previous_confidence",
			"new_type", "new_themes", "new_confidence", "reason", "created_at").
		Values(chunkID, string(audit.PreviousType), textArray(audit.PreviousThemes), audit.PreviousConfidence,
			string(audit.NewType), textArray(audit.NewThemes), audit.NewConfidence, audit.Reason, created).
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
	ID                 int64          `db:"id"`
	ChunkID            string         `db:"chunk_id"`
	PreviousType       string         `db:"previous_type"`
	PreviousThemes     pq.StringArray `db:"previous_themes"`
	PreviousConfidence float64        `db:"previous_confidence"`
	NewType            string         `db:"new_type"`
	NewThemes          pq.StringArray `db:"new_themes"`
	NewConfidence      float64        `db:"new_confidence"`
	Reason             string         `db:"reason"`
	CreatedAt          time.Time      `db:"created_at"`
}

// ClassificationHistory returns a chunk's audits, oldest first.
func (s *Store) ClassificationHistory(ctx context.Context, chunkID string) ([]domain.ClassificationAudit, error) {
	var id string
	err := s.db.GetContext(ctx, &id, "SELECT id FROM "+chunksTable+" WHERE id = $1", chunkID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chunk %q: %w", chunkID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up chunk %q: %w", chunkID, err)
	}

	query, args, err := psql.Select("id", "chunk_id", "previous_type", "previous_themes", "previous_confidence",
		"new_type", "new_themes", "new_confidence", "reason", "created_at").
		From(auditTable).
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
	out := make([]domain.ClassificationAudit, len(rows))
	for i, r := range rows {
		out[i] = domain.ClassificationAudit{
			ID:                 r.ID,
			ChunkID:            r.ChunkID,
			PreviousType:       domain.ContentType(r.PreviousType),
			PreviousThemes:     nonNil(r.PreviousThemes),
			PreviousConfidence: r.PreviousConfidence,
			NewType:            domain.ContentType(r.NewType),
			NewThemes:          nonNil(r.NewThemes),
			NewConfidence:      r.NewConfidence,
			Reason:             r.Reason,
			CreatedAt:          r.CreatedAt,
		}
	}
	return out, nil
}
