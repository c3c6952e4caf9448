package sqlite

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/vecmath"
)

type themeRow struct {
	Code        string `db:"code"`
	Label       string `db:"label"`
	Description string `db:"description"`
	Concepts    string `db:"concepts"`
	Personas    string `db:"personas"`
	Embedding   []byte `db:"embedding"`
}

func (r *themeRow) toDomain() (domain.Theme, error) {
	t := domain.Theme{
		Code:        r.Code,
		Label:       r.Label,
		Description: r.Description,
		Embedding:   bytesToFloat32Slice(r.Embedding),
	}
	var err error
	if t.Concepts, err = decodeList(r.Concepts); err != nil {
		return t, err
	}
	if t.Personas, err = decodeList(r.Personas); err != nil {
		return t, err
	}
	return t, nil
}

// SaveThemes upserts themes by code.
func (s *Store) SaveThemes(ctx context.Context, themes []domain.Theme) error {
	if len(themes) == 0 {
		return nil
	}
	insert := sq.Insert("themes").Columns("code", "label", "description", "concepts", "personas", "embedding")
	for _, t := range themes {
		if err := t.Validate(); err != nil {
			return err
		}
		insert = insert.Values(t.Code, t.Label, t.Description,
			encodeList(t.Concepts), encodeList(t.Personas), nullableBlob(t.Embedding))
	}
	query, args, err := insert.Suffix(`ON CONFLICT(code) DO UPDATE SET
		label = excluded.label,
		description = excluded.description,
		concepts = excluded.concepts,
		personas = excluded.personas,
		embedding = excluded.embedding`).ToSql()
	if err != nil {
		return errorSQLBuild(err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving themes: %w", err)
	}
	return nil
}

// ListThemes returns stored themes ordered by code.
func (s *Store) ListThemes(ctx context.Context) ([]domain.Theme, error) {
	rows, err := s.selectThemes(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Theme, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// GetThemeEmbedding returns the stored vector for code.
func (s *Store) GetThemeEmbedding(ctx context.Context, code string) ([]float32, error) {
	rows, err := s.selectThemes(ctx, sq.Eq{"code": code})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0].Embedding) == 0 {
		return nil, fmt.Errorf("theme %q embedding: %w", code, domain.ErrNotFound)
	}
	return bytesToFloat32Slice(rows[0].Embedding), nil
}

// SearchThemes ranks embedded themes by cosine similarity to vector.
func (s *Store) SearchThemes(ctx context.Context, vector []float32, threshold float64, limit int) ([]domain.ThemeMatch, error) {
	rows, err := s.selectThemes(ctx, sq.NotEq{"embedding": nil})
	if err != nil {
		return nil, err
	}
	var matches []domain.ThemeMatch
	for i := range rows {
		emb := bytesToFloat32Slice(rows[i].Embedding)
		if len(emb) != len(vector) {
			continue
		}
		if sim := vecmath.Cosine(vector, emb); sim >= threshold {
			matches = append(matches, domain.ThemeMatch{Code: rows[i].Code, Similarity: sim})
		}
	}
	domain.SortThemeMatches(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// nullableBlob keeps unembedded themes NULL so SearchThemes can skip them.
func nullableBlob(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return float32SliceToBytes(v)
}

func (s *Store) selectThemes(ctx context.Context, where sq.Sqlizer) ([]themeRow, error) {
	query := sq.Select("code", "label", "description", "concepts", "personas", "embedding").
		From("themes").
		OrderBy("code")
	if where != nil {
		query = query.Where(where)
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errorSQLBuild(err)
	}
	var rows []themeRow
	if err := s.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("querying themes: %w", err)
	}
	return rows, nil
}
