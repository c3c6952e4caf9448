package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/core/ports/driving"
	"github.com/custodia-labs/reverie/internal/lexical"
	"github.com/custodia-labs/reverie/internal/logger"
	"github.com/custodia-labs/reverie/internal/vecmath"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Semantic theme alignment: themes whose embedding is this close to the
// query boost chunks tagged with them.
const (
	themeAlignThreshold = 0.4
	themeAlignLimit     = 3
)

// RetrievalService ranks stored passages for a query by blending semantic
// similarity, BM25 and theme boosts, then filters recently seen passages.
type RetrievalService struct {
	embedder driven.EmbeddingService
	store    driven.KnowledgeStore
	personas map[string]domain.PersonaProfile
	cfg      domain.RetrievalSettings
}

// NewRetrievalService creates a retrieval service. Zero settings take the
// defaults.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	store driven.KnowledgeStore,
	personas map[string]domain.PersonaProfile,
	cfg domain.RetrievalSettings,
) *RetrievalService {
	defaults := domain.DefaultAppSettings().Retrieval
	if cfg.SemanticWeight+cfg.LexicalWeight <= 0 {
		cfg.SemanticWeight, cfg.LexicalWeight = defaults.SemanticWeight, defaults.LexicalWeight
	}
	if cfg.CandidateMultiplier <= 0 {
		cfg.CandidateMultiplier = defaults.CandidateMultiplier
	}
	if cfg.MinResults < 0 {
		cfg.MinResults = defaults.MinResults
	}
	return &RetrievalService{embedder: embedder, store: store, personas: personas, cfg: cfg}
}

// request is a RetrievalQuery with persona defaults applied.
type request struct {
	text      string
	scope     string
	threshold float64
	limit     int
	filter    *domain.MetadataFilter
	boost     []string
	bonus     float64
	hybrid    bool
	analysis  domain.QueryAnalysis
}

// Analyse runs the query pre-analysis alone.
func (s *RetrievalService) Analyse(text string, maxResults int) domain.QueryAnalysis {
	return AnalyseQuery(text, maxResults)
}

// Retrieve returns ranked passages for q. An unknown persona is the only
// error; unavailable signals are reported in RetrievalResult.Degraded and
// an empty result is a valid outcome.
func (s *RetrievalService) Retrieve(
	ctx context.Context, q domain.RetrievalQuery, tracker *domain.RepetitionTracker,
) (*domain.RetrievalResult, error) {
	logger.Section("Retrieve")

	req, err := s.resolve(q)
	if err != nil {
		return nil, err
	}
	result := &domain.RetrievalResult{Passages: []domain.Passage{}, Analysis: req.analysis}
	if req.text == "" {
		logger.Debug("empty query, returning no passages")
		return result, nil
	}
	hash := logger.QueryHash(req.text)
	logger.Debug("query %s: scope=%s threshold=%.2f limit=%d hybrid=%t",
		hash, req.scope, req.threshold, req.limit, req.hybrid)

	// Embed the query
	vec, err := s.embedder.Embed(ctx, req.text)
	if err != nil {
		logger.Warn("query %s: %v", hash, err)
		result.Degraded = append(result.Degraded, domain.DegradedQueryEmbedding)
		if !s.cfg.LexicalFallback {
			return result, nil
		}
		return s.lexicalOnly(ctx, req, tracker, result), nil
	}

	aligned := s.alignedThemes(ctx, vec, result)

	passages, err := s.rank(ctx, req, vec, req.filter, aligned, tracker, result)
	if err != nil {
		logger.Warn("query %s: similarity search failed: %v", hash, err)
		result.Degraded = append(result.Degraded, domain.DegradedStore)
		return result, nil
	}

	// Broaden once when anti-repetition starved a filtered query
	if len(passages) < s.cfg.MinResults && !req.filter.IsEmpty() {
		logger.Debug("query %s: %d passages after exclusion, retrying without filter", hash, len(passages))
		broader, err := s.rank(ctx, req, vec, nil, aligned, tracker, result)
		if err != nil {
			logger.Warn("query %s: broadened search failed: %v", hash, err)
		} else {
			passages = broader
			result.Broadened = true
		}
	}

	return s.finish(result, passages, req.limit, tracker, hash), nil
}

func (s *RetrievalService) resolve(q domain.RetrievalQuery) (request, error) {
	id := q.Persona
	if id == "" {
		id = "eclectic"
	}
	profile, ok := s.personas[id]
	if !ok {
		return request{}, fmt.Errorf("%w: %q", domain.ErrUnknownPersona, id)
	}

	req := request{
		text:      strings.TrimSpace(q.Text),
		scope:     cmp.Or(q.Scope, profile.Scope),
		threshold: profile.SimilarityThreshold,
		limit:     profile.MaxResults,
		filter:    q.Filter,
		hybrid:    s.cfg.Hybrid,
	}
	if q.SimilarityThreshold > 0 {
		req.threshold = q.SimilarityThreshold
	}
	if q.MaxResults > 0 {
		req.limit = q.MaxResults
	}
	if req.limit <= 0 {
		req.limit = 5
	}
	if q.Hybrid != nil {
		req.hybrid = *q.Hybrid
	}
	if q.Boost != nil {
		req.boost = q.Boost.Themes
		req.bonus = cmp.Or(q.Boost.Bonus, profile.BoostBonus, domain.DefaultCallerBoost)
		req.bonus = vecmath.Clamp(req.bonus, domain.MinBoost, domain.MaxBoost)
	}

	req.analysis = AnalyseQuery(req.text, req.limit)
	req.limit = req.analysis.MaxResults
	return req, nil
}

// alignedThemes returns theme codes semantically close to the query.
func (s *RetrievalService) alignedThemes(ctx context.Context, vec []float32, result *domain.RetrievalResult) map[string]bool {
	matches, err := s.store.SearchThemes(ctx, vec, themeAlignThreshold, themeAlignLimit)
	if err != nil {
		logger.Warn("theme search unavailable: %v", err)
		result.Degraded = append(result.Degraded, domain.DegradedThemeSearch)
		return nil
	}
	return lo.SliceToMap(matches, func(m domain.ThemeMatch) (string, bool) { return m.Code, true })
}

// rank fetches candidates, drops seen ones and scores the rest.
func (s *RetrievalService) rank(
	ctx context.Context, req request, vec []float32, filter *domain.MetadataFilter,
	aligned map[string]bool, tracker *domain.RepetitionTracker, result *domain.RetrievalResult,
) ([]domain.Passage, error) {
	hits, err := s.store.SimilaritySearch(ctx, domain.SimilarityQuery{
		Scope:     req.scope,
		Embedding: vec,
		Threshold: req.threshold,
		Limit:     req.limit*s.cfg.CandidateMultiplier + tracker.Len(),
		Filter:    filter,
	})
	if err != nil {
		return nil, err
	}
	hits = lo.Reject(hits, func(h domain.SimilarityHit, _ int) bool { return tracker.Seen(h.Chunk.ID) })

	var lex []float64
	if req.hybrid {
		lex = lexicalScores(req.text, lo.Map(hits, func(h domain.SimilarityHit, _ int) domain.Chunk { return h.Chunk }))
		if lex == nil && len(hits) > 0 && !slices.Contains(result.Degraded, domain.DegradedLexical) {
			result.Degraded = append(result.Degraded, domain.DegradedLexical)
		}
	}
	wSem, wLex := s.cfg.SemanticWeight, s.cfg.LexicalWeight
	if lex == nil {
		wSem, wLex = 1, 0
	}

	passages := make([]domain.Passage, len(hits))
	for i, h := range hits {
		p := domain.Passage{Chunk: h.Chunk, Components: domain.ScoreComponents{Semantic: h.Similarity}}
		if lex != nil {
			p.Components.Lexical = lex[i]
		}
		p.Components.Boost, p.MatchedThemes = s.boost(req, &h.Chunk, aligned)
		p.Score = wSem*p.Components.Semantic + wLex*p.Components.Lexical + p.Components.Boost
		passages[i] = p
	}
	sortPassages(passages)
	return passages, nil
}

// lexicalOnly ranks the whole scope by lexical relevance when the query
// could not be embedded.
func (s *RetrievalService) lexicalOnly(
	ctx context.Context, req request, tracker *domain.RepetitionTracker, result *domain.RetrievalResult,
) *domain.RetrievalResult {
	hash := logger.QueryHash(req.text)
	chunks, err := s.store.ListChunks(ctx, driven.ChunkFilter{Scope: req.scope})
	if err != nil {
		logger.Warn("query %s: lexical fallback failed: %v", hash, err)
		result.Degraded = append(result.Degraded, domain.DegradedStore)
		return result
	}
	chunks = lo.Filter(chunks, func(c domain.Chunk, _ int) bool {
		return req.filter.Matches(&c) && !tracker.Seen(c.ID)
	})

	lex := lexicalScores(req.text, chunks)
	if lex == nil {
		result.Degraded = append(result.Degraded, domain.DegradedLexical)
		return result
	}
	result.Degraded = append(result.Degraded, domain.DegradedLexicalOnly)

	var passages []domain.Passage
	for i := range chunks {
		if lex[i] <= 0 {
			continue
		}
		p := domain.Passage{Chunk: chunks[i], Components: domain.ScoreComponents{Lexical: lex[i]}}
		p.Components.Boost, p.MatchedThemes = s.boost(req, &chunks[i], nil)
		p.Score = p.Components.Lexical + p.Components.Boost
		passages = append(passages, p)
	}
	sortPassages(passages)
	return s.finish(result, passages, req.limit, tracker, hash)
}

// boost sums the caller, analyser and alignment bonuses a chunk earns,
// capped at MaxBoost, with the themes that earned them.
func (s *RetrievalService) boost(req request, c *domain.Chunk, aligned map[string]bool) (float64, []string) {
	total := 0.0
	var matched []string

	if hit := c.HasAnyTheme(req.boost); len(hit) > 0 {
		total += req.bonus
		matched = append(matched, hit...)
	}
	if hit := c.HasAnyTheme(req.analysis.BoostThemes); len(hit) > 0 {
		total += domain.DefaultAnalyserBoost
		matched = append(matched, hit...)
	}
	if hit := lo.Filter(c.Themes, func(t string, _ int) bool { return aligned[t] }); len(hit) > 0 {
		total += domain.DefaultThemeAlign
		matched = append(matched, hit...)
	}

	if len(matched) == 0 {
		return 0, nil
	}
	matched = lo.Uniq(matched)
	slices.Sort(matched)
	return min(total, domain.MaxBoost), matched
}

// finish truncates, records the returned ids and fills the result.
func (s *RetrievalService) finish(
	result *domain.RetrievalResult, passages []domain.Passage, limit int,
	tracker *domain.RepetitionTracker, hash string,
) *domain.RetrievalResult {
	if len(passages) > limit {
		passages = passages[:limit]
	}
	if passages == nil {
		passages = []domain.Passage{}
	}
	result.Passages = passages
	tracker.Record(result.IDs()...)

	if result.Empty() {
		logger.Info("query %s: no passages", hash)
	} else {
		logger.Info("query %s: %d passages, top score %.3f", hash, len(passages), passages[0].Score)
	}
	return result
}

// lexicalScores blends normalised BM25 over the candidate set with the
// sparse term overlap stored on each chunk. It returns nil when the query
// has no indexable terms.
func lexicalScores(query string, chunks []domain.Chunk) []float64 {
	queryWeights := lexical.SparseWeights(query)
	if len(queryWeights) == 0 {
		return nil
	}
	docs := lo.Map(chunks, func(c domain.Chunk, _ int) string { return c.Content })
	bm25 := lexical.NewIndex(docs).Normalized(query)

	out := make([]float64, len(chunks))
	for i, c := range chunks {
		out[i] = bm25[i]
		if len(c.SparseEmbedding) > 0 {
			out[i] = (bm25[i] + lexical.SparseDot(queryWeights, c.SparseEmbedding)) / 2
		}
	}
	return out
}

// sortPassages orders by score, then semantic similarity, both descending,
// then chunk id.
func sortPassages(passages []domain.Passage) {
	slices.SortFunc(passages, func(a, b domain.Passage) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Components.Semantic, a.Components.Semantic); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.ID, b.Chunk.ID)
	})
}
