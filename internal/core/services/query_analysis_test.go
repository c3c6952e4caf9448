package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyseQuery(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		topics     []string
		boost      []string
		maxResults int
	}{
		{
			name:       "no topic",
			text:       "I was at a dinner party",
			topics:     []string{},
			boost:      []string{},
			maxResults: 5,
		},
		{
			name:       "flight and heights",
			text:       "flying over mountains feeling free",
			topics:     []string{"flight", "heights"},
			boost:      []string{"flying", "mountains"},
			maxResults: 5,
		},
		{
			name:       "beach chase",
			text:       "I dreamed I was walking along a beach when a shadow chased me into a maze",
			topics:     []string{"pursuit", "water", "confinement", "shadow"},
			boost:      []string{"being_chased", "water", "ocean", "beach", "maze", "shadow", "stranger"},
			maxResults: 5,
		},
		{
			name:       "largest widening wins",
			text:       "nightmares about sleep paralysis and memories of my mother",
			topics:     []string{"fear_anxiety", "memory_learning", "sleep_disorder", "family"},
			boost:      []string{"nightmare", "threat_rehearsal", "memory", "paralysis", "mother", "father"},
			maxResults: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AnalyseQuery(tt.text, 5)
			assert.Equal(t, tt.topics, a.Topics)
			assert.Equal(t, tt.boost, a.BoostThemes)
			assert.Equal(t, tt.maxResults, a.MaxResults)
		})
	}
}

func TestAnalyseQuery_WideningDoesNotAccumulate(t *testing.T) {
	// fear_anxiety and sleep_disorder each add 2; the largest wins.
	a := AnalyseQuery("scared of insomnia", 10)
	assert.Equal(t, 12, a.MaxResults)
}
