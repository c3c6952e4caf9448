package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var (
	themesPersona string
	themesJSON    bool
	themesForce   bool
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Inspect and embed the dream theme vocabulary",
}

var themesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List themes available to a persona",
	Args:  cobra.NoArgs,
	RunE:  runThemesList,
}

var themesEmbedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed themes that have no vector yet",
	Long: `Embeds each theme's label and description with the configured provider
and stores the vectors. Use --force after changing provider or model.`,
	Args: cobra.NoArgs,
	RunE: runThemesEmbed,
}

func init() {
	themesListCmd.Flags().StringVarP(&themesPersona, "persona", "p", "", "only themes available to this persona")
	themesListCmd.Flags().BoolVar(&themesJSON, "json", false, "output themes as JSON")
	themesEmbedCmd.Flags().BoolVar(&themesForce, "force", false, "re-embed every theme")

	themesCmd.AddCommand(themesListCmd)
	themesCmd.AddCommand(themesEmbedCmd)
	rootCmd.AddCommand(themesCmd)
}

func runThemesList(cmd *cobra.Command, _ []string) error {
	if themeService == nil {
		return errors.New("theme service not configured")
	}

	themes := themeService.List(themesPersona)
	if themesJSON {
		return printJSON(cmd, themes)
	}

	if len(themes) == 0 {
		cmd.Println("No themes.")
		return nil
	}
	for _, t := range themes {
		mark := " "
		if len(t.Embedding) > 0 {
			mark = "*"
		}
		cmd.Printf("%s %-22s %s\n", mark, t.Code, t.Label)
		if len(t.Personas) > 0 {
			cmd.Printf("  %-22s personas: %s\n", "", strings.Join(t.Personas, ", "))
		}
	}
	cmd.Println()
	cmd.Println("* embedded")
	return nil
}

func runThemesEmbed(cmd *cobra.Command, _ []string) error {
	if themeService == nil {
		return errors.New("theme service not configured")
	}

	n, err := themeService.EmbedAll(cmd.Context(), themesForce)
	if err != nil {
		return err
	}
	cmd.Printf("Embedded %d themes.\n", n)
	return nil
}
