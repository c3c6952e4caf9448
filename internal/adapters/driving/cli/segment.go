package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

var (
	segmentPersona string
	segmentJSON    bool
)

var segmentCmd = &cobra.Command{
	Use:   "segment <file>",
	Short: "Split a text into overlapping chunks",
	Long: `Splits a text file into the chunks ingestion would store, using the
persona's chunk size, overlap and bounds. Nothing is embedded or written.`,
	Args: cobra.ExactArgs(1),
	RunE: runSegment,
}

func init() {
	segmentCmd.Flags().StringVarP(&segmentPersona, "persona", "p", defaultPersona, "persona whose chunk sizes apply")
	segmentCmd.Flags().BoolVar(&segmentJSON, "json", false, "output segments as JSON")
	rootCmd.AddCommand(segmentCmd)
}

func runSegment(cmd *cobra.Command, args []string) error {
	if segmentationService == nil {
		return errors.New("segmentation service not configured")
	}

	profile, err := persona(segmentPersona)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	segments, err := segmentationService.Segment(filepath.Base(args[0]), string(data), profile.SegmentOptions())
	if err != nil {
		return err
	}
	stats := segmentationService.Stats(segments)

	if segmentJSON {
		return printJSON(cmd, struct {
			Segments []domain.Segment    `json:"segments"`
			Stats    domain.SegmentStats `json:"stats"`
		}{segments, stats})
	}

	for _, s := range segments {
		cmd.Printf("[%d] %d-%d  %s\n", s.Index, s.Start, s.End, snippet(s.Text, 60))
	}
	cmd.Println()
	cmd.Printf("%d chunks, %d-%d characters (avg %.0f)", stats.Count, stats.Min, stats.Max, stats.Average)
	if stats.Tokens > 0 {
		cmd.Printf(", %d tokens", stats.Tokens)
	}
	cmd.Println()
	return nil
}
