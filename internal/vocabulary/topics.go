package vocabulary

import "regexp"

// TopicDetector maps a cheap regex over query text to boost themes.
type TopicDetector struct {
	Name    string
	Pattern *regexp.Regexp

	// Themes are boosted when the detector fires.
	Themes []string

	// ExtraResults widens the result count for broad topics.
	ExtraResults int
}

var topicDetectors = []TopicDetector{
	{
		Name:    "flight",
		Pattern: regexp.MustCompile(`(?i)\b(fly|flying|flew|flight|soar\w*|float\w*|hover\w*|wings?)\b`),
		Themes:  []string{"flying"},
	},
	{
		Name:    "falling",
		Pattern: regexp.MustCompile(`(?i)\b(fall|falling|fell|drop(ped|ping)?|plunge\w*)\b`),
		Themes:  []string{"falling"},
	},
	{
		Name:    "pursuit",
		Pattern: regexp.MustCompile(`(?i)\b(chas\w*|pursu\w*|hunted|running away|escap\w*)\b`),
		Themes:  []string{"being_chased"},
	},
	{
		Name:         "fear_anxiety",
		Pattern:      regexp.MustCompile(`(?i)\b(fear\w*|afraid|scared|anxi\w+|panic\w*|terrif\w+|dread\w*|nightmares?)\b`),
		Themes:       []string{"nightmare", "threat_rehearsal"},
		ExtraResults: 2,
	},
	{
		Name:         "memory_learning",
		Pattern:      regexp.MustCompile(`(?i)\b(memor\w+|learn\w*|remember\w*|recall\w*|consolidat\w+)\b`),
		Themes:       []string{"memory"},
		ExtraResults: 1,
	},
	{
		Name:         "sleep_disorder",
		Pattern:      regexp.MustCompile(`(?i)\b(insomnia|sleep paralysis|apnea|narcolep\w+|sleepwalk\w*|night terrors?|can'?t move)\b`),
		Themes:       []string{"paralysis", "nightmare"},
		ExtraResults: 2,
	},
	{
		Name:    "water",
		Pattern: regexp.MustCompile(`(?i)\b(water|ocean|sea|waves?|swim\w*|drown\w*|flood\w*|river|lake|beach)\b`),
		Themes:  []string{"water", "ocean", "beach"},
	},
	{
		Name:    "heights",
		Pattern: regexp.MustCompile(`(?i)\b(mountains?|peaks?|summit|climb\w*|cliffs?)\b`),
		Themes:  []string{"mountains"},
	},
	{
		Name:    "mortality",
		Pattern: regexp.MustCompile(`(?i)\b(death|dead|dying|die|died|funeral|grave|corpse)\b`),
		Themes:  []string{"death", "rebirth"},
	},
	{
		Name:    "family",
		Pattern: regexp.MustCompile(`(?i)\b(mother|mom|mum|father|dad|parents?|sister|brother|family)\b`),
		Themes:  []string{"mother", "father"},
	},
	{
		Name:    "exposure",
		Pattern: regexp.MustCompile(`(?i)\b(naked|nude|undressed|exposed|embarrass\w*|teeth)\b`),
		Themes:  []string{"nudity", "teeth_falling"},
	},
	{
		Name:    "lucidity",
		Pattern: regexp.MustCompile(`(?i)\b(lucid|knew i was dreaming|aware (that )?i was dreaming)\b`),
		Themes:  []string{"lucid"},
	},
	{
		Name:    "confinement",
		Pattern: regexp.MustCompile(`(?i)\b(maze|labyrinth|lost|trapped|corridors?)\b`),
		Themes:  []string{"maze"},
	},
	{
		Name:    "shadow",
		Pattern: regexp.MustCompile(`(?i)\b(shadows?|dark figure|stranger|intruder)\b`),
		Themes:  []string{"shadow", "stranger"},
	},
}

// TopicDetectors returns the fixed topic detectors in evaluation order.
func TopicDetectors() []TopicDetector {
	return topicDetectors
}
