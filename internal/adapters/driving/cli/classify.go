package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reverie/internal/logger"
)

var (
	classifyPersona string
	classifyFile    string
	classifyJSON    bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify text into a content type and themes",
	Long: `Classifies text the way ingestion classifies each chunk. Text comes from
the arguments, --file, or stdin.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyPersona, "persona", "p", defaultPersona, "persona whose themes apply")
	classifyCmd.Flags().StringVarP(&classifyFile, "file", "f", "", "read text from a file")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "output the classification as JSON")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	if classificationService == nil {
		return errors.New("classification service not configured")
	}

	text, err := readInput(cmd, args, classifyFile)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("no text to classify")
	}

	var vec []float32
	if embeddingService != nil {
		if vec, err = embeddingService.Embed(cmd.Context(), text); err != nil {
			logger.Warn("classifying without embedding: %v", err)
			vec = nil
		}
	}

	cl := classificationService.Classify(cmd.Context(), text, classifyPersona, vec)
	if classifyJSON {
		return printJSON(cmd, cl)
	}

	cmd.Printf("Content type: %s (%.2f)\n", cl.PrimaryContentType, cl.Confidence.ContentType)
	cmd.Printf("Themes:       %s (%.2f)\n", orNone(cl.Themes), cl.Confidence.Themes)
	cmd.Printf("Concepts:     %s\n", orNone(cl.Concepts))
	cmd.Printf("Symbols:      %s\n", orNone(cl.Symbols))
	cmd.Printf("Keywords:     %s\n", orNone(cl.Keywords))
	cmd.Printf("Overall:      %.2f\n", cl.Confidence.Overall)
	if cl.Discourse.IsTheoretical {
		cmd.Println("Discourse:    theoretical")
	}
	if cl.Degraded {
		cmd.Println("Note: semantic pass skipped, lexical classification only")
	}
	return nil
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
