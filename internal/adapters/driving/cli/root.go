// Package cli provides the reverie command-line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/core/ports/driving"
	"github.com/custodia-labs/reverie/internal/logger"
)

// version is set at build time.
var version = "dev"

var verbose bool

// Services wired by main. Commands report "not configured" for nil ones.
var (
	segmentationService   driving.SegmentationService
	classificationService driving.ClassificationService
	ingestionService      driving.IngestionService
	extractionService     driving.ExtractionService
	retrievalService      driving.RetrievalService
	themeService          driving.ThemeService
	reclassifyService     driving.ReclassificationService
	settingsService       driving.SettingsService
	embeddingService      driven.EmbeddingService
)

// Services aggregates the driving ports the commands use.
type Services struct {
	Segmentation   driving.SegmentationService
	Classification driving.ClassificationService
	Ingestion      driving.IngestionService
	Extraction     driving.ExtractionService
	Retrieval      driving.RetrievalService
	Themes         driving.ThemeService
	Reclassify     driving.ReclassificationService
	Settings       driving.SettingsService

	// Embedder is used by classify to run the semantic pass.
	Embedder driven.EmbeddingService
}

var rootCmd = &cobra.Command{
	Use:   "reverie",
	Short: "Persona-scoped passage retrieval for dream interpretation",
	Long: `reverie ingests psychoanalytic and neuroscience texts into per-persona
corpora, tags every passage with a content type and dream themes, and
retrieves the passages most relevant to a dream narrative.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices injects the services the commands call.
func SetServices(s Services) {
	segmentationService = s.Segmentation
	classificationService = s.Classification
	ingestionService = s.Ingestion
	extractionService = s.Extraction
	retrievalService = s.Retrieval
	themeService = s.Themes
	reclassifyService = s.Reclassify
	settingsService = s.Settings
	embeddingService = s.Embedder
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
