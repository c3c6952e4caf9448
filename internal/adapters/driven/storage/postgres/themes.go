package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

var themeColumns = []string{"code", "label", "description", "concepts", "personas", "embedding"}

type themeRow struct {
	Code        string           `db:"code"`
	Label       string           `db:"label"`
	Description string           `db:"description"`
	Concepts    pq.StringArray   `db:"concepts"`
	Personas    pq.StringArray   `db:"personas"`
	Embedding   *pgvector.Vector `db:"embedding"`
}

func (r *themeRow) toDomain() domain.Theme {
	t := domain.Theme{
		Code:        r.Code,
		Label:       r.Label,
		Description: r.Description,
		Concepts:    nonNil(r.Concepts),
		Personas:    nonNil(r.Personas),
	}
	if r.Embedding != nil {
		t.Embedding = r.Embedding.Slice()
	}
	return t
}

// SaveThemes upserts themes by code.
func (s *Store) SaveThemes(ctx context.Context, themes []domain.Theme) error {
	if len(themes) == 0 {
		return nil
	}
	query, args, err := saveThemesQuery(themes)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving themes: %w", err)
	}
	return nil
}

func saveThemesQuery(themes []domain.Theme) (string, []any, error) {
	insert := psql.Insert(themesTable).Columns(themeColumns...)
	for _, t := range themes {
		if err := t.Validate(); err != nil {
			return "", nil, err
		}
		var vec any
		if len(t.Embedding) > 0 {
			vec = pgvector.NewVector(t.Embedding)
		}
		insert = insert.Values(t.Code, t.Label, t.Description, textArray(t.Concepts), textArray(t.Personas), vec)
	}
	query, args, err := insert.Suffix(`ON CONFLICT (code) DO UPDATE SET
		label = EXCLUDED.label,
		description = EXCLUDED.description,
		concepts = EXCLUDED.concepts,
		personas = EXCLUDED.personas,
		embedding = EXCLUDED.embedding`).ToSql()
	if err != nil {
		return "", nil, errorSQLBuild(err)
	}
	return query, args, nil
}

// ListThemes returns stored themes ordered by code.
func (s *Store) ListThemes(ctx context.Context) ([]domain.Theme, error) {
	rows, err := s.selectThemes(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Theme, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// GetThemeEmbedding returns the stored vector for code.
func (s *Store) GetThemeEmbedding(ctx context.Context, code string) ([]float32, error) {
	rows, err := s.selectThemes(ctx, sq.Eq{"code": code})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0].Embedding == nil {
		return nil, fmt.Errorf("theme %q embedding: %w", code, domain.ErrNotFound)
	}
	return rows[0].Embedding.Slice(), nil
}

type themeMatchRow struct {
	Code       string  `db:"code"`
	Similarity float64 `db:"similarity"`
}

// SearchThemes ranks embedded themes of the same size by cosine similarity.
func (s *Store) SearchThemes(ctx context.Context, vector []float32, threshold float64, limit int) ([]domain.ThemeMatch, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	query, args, err := searchThemesQuery(vector, threshold, limit)
	if err != nil {
		return nil, err
	}
	var rows []themeMatchRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("searching themes: %w", err)
	}
	out := make([]domain.ThemeMatch, len(rows))
	for i, r := range rows {
		out[i] = domain.ThemeMatch{Code: r.Code, Similarity: r.Similarity}
	}
	domain.SortThemeMatches(out)
	return out, nil
}

func searchThemesQuery(vector []float32, threshold float64, limit int) (string, []any, error) {
	// CASE guards the distance operator, which fails on mismatched sizes.
	const score = "CASE WHEN vector_dims(embedding) = ? THEN 1 - (embedding <=> ?) END"
	vec := pgvector.NewVector(vector)
	sel := psql.Select("code").
		Column(sq.Expr(score+" AS similarity", len(vector), vec)).
		From(themesTable).
		Where(sq.Expr(score+" >= ?", len(vector), vec, threshold)).
		OrderBy("similarity DESC", "code")
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return "", nil, errorSQLBuild(err)
	}
	return query, args, nil
}

func (s *Store) selectThemes(ctx context.Context, where sq.Sqlizer) ([]themeRow, error) {
	sel := psql.Select(themeColumns...).From(themesTable).OrderBy("code")
	if where != nil {
		sel = sel.Where(where)
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, errorSQLBuild(err)
	}
	var rows []themeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying themes: %w", err)
	}
	return rows, nil
}
