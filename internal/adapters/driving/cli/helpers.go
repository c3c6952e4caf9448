package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

// defaultPersona is used when --persona is not given.
const defaultPersona = "eclectic"

// persona returns the profile for id from settings, or from the stock
// profiles when no settings service is configured.
func persona(id string) (domain.PersonaProfile, error) {
	if id == "" {
		id = defaultPersona
	}
	if settingsService != nil {
		return settingsService.Persona(id)
	}
	p, ok := domain.DefaultPersonas()[id]
	if !ok {
		return domain.PersonaProfile{}, fmt.Errorf("%w: %q", domain.ErrUnknownPersona, id)
	}
	return p, nil
}

// readInput returns the joined args, the contents of path, or stdin when
// args is empty and path is "-" or unset.
func readInput(cmd *cobra.Command, args []string, path string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if path != "" && path != "-" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// snippet shortens text for table output.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
