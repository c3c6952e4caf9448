package driving

import "github.com/custodia-labs/reverie/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Set updates one dotted key and persists it.
	Set(key, value string) error

	// Persona returns one persona profile or ErrUnknownPersona.
	Persona(id string) (domain.PersonaProfile, error)

	// Validate checks the current settings.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Keys lists the settable dotted keys.
	Keys() []string
}
