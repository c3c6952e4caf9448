package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var (
	reclassifyPersona string
	reclassifyReason  string
	reclassifyJSON    bool
)

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Re-run classification over a persona's stored passages",
	Long: `Classifies every stored passage again with the current vocabulary and
persona settings. Changed passages are updated and an audit row records the
previous and new classification.`,
	Args: cobra.NoArgs,
	RunE: runReclassify,
}

var reclassifyHistoryCmd = &cobra.Command{
	Use:   "history <chunk-id>",
	Short: "Show the classification history of a passage",
	Args:  cobra.ExactArgs(1),
	RunE:  runReclassifyHistory,
}

func init() {
	reclassifyCmd.Flags().StringVarP(&reclassifyPersona, "persona", "p", defaultPersona, "persona whose corpus is reclassified")
	reclassifyCmd.Flags().StringVar(&reclassifyReason, "reason", "", "reason recorded in the audit trail")
	reclassifyCmd.PersistentFlags().BoolVar(&reclassifyJSON, "json", false, "output as JSON")

	reclassifyCmd.AddCommand(reclassifyHistoryCmd)
	rootCmd.AddCommand(reclassifyCmd)
}

func runReclassify(cmd *cobra.Command, _ []string) error {
	if reclassifyService == nil {
		return errors.New("reclassification service not configured")
	}

	report, err := reclassifyService.Reclassify(cmd.Context(), reclassifyPersona, reclassifyReason)
	if report != nil {
		if reclassifyJSON {
			if perr := printJSON(cmd, report); perr != nil {
				return perr
			}
		} else {
			cmd.Printf("%s: %d examined, %d changed, %d unchanged, %d errors\n",
				report.Scope, report.Examined, report.Changed, report.Unchanged, report.Errors)
		}
	}
	return err
}

func runReclassifyHistory(cmd *cobra.Command, args []string) error {
	if reclassifyService == nil {
		return errors.New("reclassification service not configured")
	}

	audits, err := reclassifyService.History(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if reclassifyJSON {
		return printJSON(cmd, audits)
	}

	if len(audits) == 0 {
		cmd.Println("Never reclassified.")
		return nil
	}
	for _, a := range audits {
		cmd.Printf("%s  %s\n", a.CreatedAt.Format("2006-01-02 15:04"), a.Reason)
		cmd.Printf("  %s [%s] %.2f -> %s [%s] %.2f\n",
			a.PreviousType, strings.Join(a.PreviousThemes, ", "), a.PreviousConfidence,
			a.NewType, strings.Join(a.NewThemes, ", "), a.NewConfidence)
	}
	return nil
}
