package services

import (
	"github.com/samber/lo"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/logger"
	"github.com/custodia-labs/reverie/internal/vocabulary"
)

// maxExtraResults caps how far topic detectors can widen a result list.
const maxExtraResults = 4

// AnalyseQuery runs the topic detectors over text. It never fails: no
// match, or a panic in a detector, yields an analysis without boosts.
func AnalyseQuery(text string, maxResults int) (a domain.QueryAnalysis) {
	a = domain.QueryAnalysis{Topics: []string{}, BoostThemes: []string{}, MaxResults: maxResults}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("query analysis failed for %s: %v", logger.QueryHash(text), r)
			a = domain.QueryAnalysis{Topics: []string{}, BoostThemes: []string{}, MaxResults: maxResults}
		}
	}()

	extra := 0
	for _, d := range vocabulary.TopicDetectors() {
		if !d.Pattern.MatchString(text) {
			continue
		}
		a.Topics = append(a.Topics, d.Name)
		a.BoostThemes = append(a.BoostThemes, d.Themes...)
		extra = max(extra, d.ExtraResults)
	}
	a.BoostThemes = lo.Uniq(a.BoostThemes)
	a.MaxResults = maxResults + min(extra, maxExtraResults)

	if len(a.Topics) > 0 {
		logger.Debug("query %s topics %v boost %v", logger.QueryHash(text), a.Topics, a.BoostThemes)
	}
	return a
}
