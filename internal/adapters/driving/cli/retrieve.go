package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

var (
	retrievePersona      string
	retrieveLimit        int
	retrieveThreshold    float64
	retrieveContentTypes []string
	retrieveThemes       []string
	retrieveBoost        []string
	retrieveNoHybrid     bool
	retrieveSession      string
	retrieveJSON         bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Retrieve passages relevant to a dream",
	Long: `Ranks stored passages for a dream narrative or question.
Blends semantic similarity with BM25 relevance and theme boosts.

With --session, ids returned by earlier runs are remembered in the given
file and not returned again.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRetrieve,
}

func init() {
	f := retrieveCmd.Flags()
	f.StringVarP(&retrievePersona, "persona", "p", defaultPersona, "interpreter persona")
	f.IntVarP(&retrieveLimit, "limit", "n", 0, "maximum number of passages (default from persona)")
	f.Float64Var(&retrieveThreshold, "threshold", 0, "minimum cosine similarity (default from persona)")
	f.StringSliceVar(&retrieveContentTypes, "content-type", nil, "only return these content types")
	f.StringSliceVar(&retrieveThemes, "theme", nil, "only return passages carrying one of these themes")
	f.StringSliceVar(&retrieveBoost, "boost", nil, "favour passages carrying these themes")
	f.BoolVar(&retrieveNoHybrid, "no-hybrid", false, "rank by semantic similarity only")
	f.StringVar(&retrieveSession, "session", "", "file remembering passages already returned")
	f.BoolVar(&retrieveJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	text, err := readInput(cmd, args, "")
	if err != nil {
		return err
	}

	q := domain.RetrievalQuery{
		Text:                strings.TrimSpace(text),
		Persona:             retrievePersona,
		SimilarityThreshold: retrieveThreshold,
		MaxResults:          retrieveLimit,
	}
	if retrieveNoHybrid {
		q.Hybrid = lo.ToPtr(false)
	}
	if len(retrieveContentTypes) > 0 || len(retrieveThemes) > 0 {
		types, err := parseContentTypes(retrieveContentTypes)
		if err != nil {
			return err
		}
		q.Filter = &domain.MetadataFilter{ContentTypes: types, Themes: retrieveThemes}
	}
	if len(retrieveBoost) > 0 {
		q.Boost = &domain.BoostSpec{Themes: retrieveBoost}
	}

	tracker, err := loadSession(retrieveSession)
	if err != nil {
		return err
	}

	res, err := retrievalService.Retrieve(cmd.Context(), q, tracker)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if err := saveSession(retrieveSession, tracker); err != nil {
		return err
	}

	if retrieveJSON {
		return printJSON(cmd, res)
	}
	printRetrieval(cmd, res)
	return nil
}

func parseContentTypes(raw []string) ([]domain.ContentType, error) {
	types := make([]domain.ContentType, 0, len(raw))
	for _, s := range raw {
		ct := domain.ContentType(strings.ToLower(strings.TrimSpace(s)))
		if !ct.IsValid() {
			return nil, fmt.Errorf("%w: unknown content type %q", domain.ErrInvalidInput, s)
		}
		types = append(types, ct)
	}
	return types, nil
}

// loadSession reads a tracker persisted by saveSession. A missing file
// starts a fresh session; an empty path disables anti-repetition.
func loadSession(path string) (*domain.RepetitionTracker, error) {
	if path == "" {
		return nil, nil
	}
	size := domain.DefaultTrackerSize
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			size = s.Retrieval.TrackerSize
		}
	}
	tracker := domain.NewRepetitionTracker(size)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return tracker, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", path, err)
	}
	tracker.Record(ids...)
	return tracker, nil
}

func saveSession(path string, tracker *domain.RepetitionTracker) error {
	if path == "" {
		return nil
	}
	data, err := json.Marshal(tracker.IDs())
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func printRetrieval(cmd *cobra.Command, res *domain.RetrievalResult) {
	if len(res.Analysis.Topics) > 0 {
		cmd.Printf("Topics: %s\n", strings.Join(res.Analysis.Topics, ", "))
	}
	if len(res.Degraded) > 0 {
		cmd.Printf("Degraded: %s\n", strings.Join(res.Degraded, ", "))
	}
	if res.Broadened {
		cmd.Println("Filter dropped to find enough new passages.")
	}

	if res.Empty() {
		cmd.Println("No passages found.")
		return
	}

	cmd.Println()
	for i, p := range res.Passages {
		where := p.Chunk.Source
		if p.Chunk.Chapter != "" {
			where += " / " + p.Chunk.Chapter
		}
		cmd.Printf("[%d] %s #%d (%s) score %.3f = sem %.3f, lex %.3f, boost %.2f\n",
			i+1, where, p.Chunk.Position, p.Chunk.ContentType,
			p.Score, p.Components.Semantic, p.Components.Lexical, p.Components.Boost)
		if len(p.MatchedThemes) > 0 {
			cmd.Printf("    themes: %s\n", strings.Join(p.MatchedThemes, ", "))
		}
		cmd.Printf("    %s\n", snippet(p.Chunk.Content, 160))
	}
}
