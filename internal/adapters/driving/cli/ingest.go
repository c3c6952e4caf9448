package cli

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

var (
	ingestPersona string
	ingestSource  string
	ingestChapter string
	ingestScope   string
	ingestJSON    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest text files into a persona's corpus",
	Long: `Segments, embeds, classifies and stores each file. Chunks already stored
for the same source are skipped, so an interrupted run can simply be repeated.

Plain text, Markdown, HTML and DOCX files are converted to text first. The
source title defaults to the document title, then to the file name.

A file that cannot be read as text or segmented is reported and the others
continue.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestPersona, "persona", "p", defaultPersona, "persona whose settings apply")
	ingestCmd.Flags().StringVarP(&ingestSource, "source", "s", "", "source title (default: document title or file name; single file only)")
	ingestCmd.Flags().StringVar(&ingestChapter, "chapter", "", "chapter label")
	ingestCmd.Flags().StringVar(&ingestScope, "scope", "", "corpus to write to (default: persona scope)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output reports as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}
	if ingestSource != "" && len(args) > 1 {
		return errors.New("--source can only be used with a single file")
	}

	ctx := cmd.Context()
	var (
		reports []*domain.IngestReport
		failed  int
	)
	for _, path := range args {
		report, err := ingestFile(ctx, path)
		if report != nil {
			reports = append(reports, report)
			if !ingestJSON {
				printIngestReport(cmd, report)
			}
		}
		if err == nil {
			continue
		}

		var segErr *domain.SegmentationError
		if errors.As(err, &segErr) || errors.Is(err, domain.ErrUnsupportedType) || errors.Is(err, domain.ErrInvalidInput) {
			cmd.PrintErrf("Skipping %s: %v\n", path, err)
			failed++
			continue
		}
		if errors.Is(err, context.Canceled) {
			cmd.PrintErrln("Interrupted. Run the same command again to resume.")
		}
		return err
	}

	if ingestJSON {
		return printJSON(cmd, reports)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be ingested", failed, len(args))
	}
	return nil
}

func ingestFile(ctx context.Context, path string) (*domain.IngestReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	text, title := string(data), ""
	if extractionService != nil {
		extracted, err := extractionService.Extract(ctx, path, data)
		if err != nil {
			return nil, err
		}
		text, title = extracted.Text, extracted.Title
	}

	source := cmp.Or(ingestSource, title, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	return ingestionService.Ingest(ctx, domain.SourceDocument{
		Source:  source,
		Chapter: ingestChapter,
		Scope:   ingestScope,
		Persona: ingestPersona,
		Text:    text,
	})
}

func printIngestReport(cmd *cobra.Command, r *domain.IngestReport) {
	cmd.Printf("%s -> %s: %d chunks, %d written, %d skipped", r.Source, r.Scope, r.Segments, r.Written, r.Skipped)
	if len(r.Failed) > 0 {
		cmd.Printf(", %d failed", len(r.Failed))
	}
	if r.Degraded > 0 {
		cmd.Printf(", %d lexical-only", r.Degraded)
	}
	cmd.Printf(" (%s)\n", r.Duration.Round(1e6))
	for _, f := range r.Failed {
		cmd.Printf("  chunk %d: %s\n", f.Position, f.Error)
	}
}
