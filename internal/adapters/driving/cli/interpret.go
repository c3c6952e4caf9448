package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reverie/internal/interpretation"
)

var (
	interpretFile string
	interpretJSON bool
)

var interpretCmd = &cobra.Command{
	Use:   "interpret [text]",
	Short: "Parse an interpreter's response",
	Long: `Reads a persona interpreter's raw response and shows it as a narrative
analysis, structured insights, or the raw text when neither shape matches.
Reads stdin when no text or --file is given.`,
	Args: cobra.ArbitraryArgs,
	RunE: runInterpret,
}

func init() {
	interpretCmd.Flags().StringVarP(&interpretFile, "file", "f", "", "read the response from a file")
	interpretCmd.Flags().BoolVar(&interpretJSON, "json", false, "output the parsed result as JSON")
	rootCmd.AddCommand(interpretCmd)
}

func runInterpret(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, args, interpretFile)
	if err != nil {
		return err
	}

	r := interpretation.Parse(raw)
	if interpretJSON {
		return printJSON(cmd, r)
	}

	cmd.Printf("Kind: %s\n", r.Kind)
	switch r.Kind {
	case interpretation.KindNarrative:
		n := r.Narrative
		cmd.Println()
		cmd.Println(n.Interpretation)
		for _, s := range n.Symbols {
			if s.Meaning != "" {
				cmd.Printf("  symbol %s: %s\n", s.Name, s.Meaning)
			} else {
				cmd.Printf("  symbol %s\n", s.Name)
			}
		}
		printList(cmd, "Themes", n.Themes)
		printList(cmd, "Emotions", n.Emotions)
		printList(cmd, "Questions", n.Questions)
	case interpretation.KindStructured:
		s := r.Structured
		if s.Summary != "" {
			cmd.Println()
			cmd.Println(s.Summary)
		}
		cmd.Println()
		for i, in := range s.Insights {
			if in.Title != "" {
				cmd.Printf("%d. %s: %s\n", i+1, in.Title, in.Detail)
			} else {
				cmd.Printf("%d. %s\n", i+1, in.Detail)
			}
		}
		printList(cmd, "Themes", s.Themes)
		printList(cmd, "Guidance", s.Guidance)
	default:
		cmd.Printf("Reason: %s\n", r.Fallback.Reason)
		if r.Fallback.Text != "" {
			cmd.Println()
			cmd.Println(r.Fallback.Text)
		}
	}
	return nil
}

func printList(cmd *cobra.Command, label string, items []string) {
	if len(items) > 0 {
		cmd.Printf("%s: %s\n", label, strings.Join(items, ", "))
	}
}
